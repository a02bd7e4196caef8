// Package specialization 提供报修描述到工种的识别与工种替代规则
package specialization

import (
	"strings"
	"unicode"

	"github.com/weixiu/weixiu/pkg/model"
)

// Rule 工种关键词规则，规则之间按顺序匹配，先命中者优先
type Rule struct {
	Category model.Category `yaml:"category" json:"category"`
	Keywords []string       `yaml:"keywords" json:"keywords"`
}

// Catalog 工种目录（创建后不可变，可注入）
type Catalog struct {
	rules    []Rule
	synonyms map[string]model.Category
	fallback model.Category
}

// NewCatalog 创建工种目录，rules 的顺序即匹配优先级
func NewCatalog(rules []Rule, synonyms map[string]model.Category) *Catalog {
	c := &Catalog{
		rules:    make([]Rule, 0, len(rules)),
		synonyms: make(map[string]model.Category, len(synonyms)),
		fallback: model.CategoryGeneralMaintenance,
	}

	for _, r := range rules {
		kws := make([]string, 0, len(r.Keywords))
		for _, kw := range r.Keywords {
			if kw = normalize(kw); kw != "" {
				kws = append(kws, kw)
			}
		}
		c.rules = append(c.rules, Rule{Category: r.Category, Keywords: kws})
	}

	for k, v := range synonyms {
		c.synonyms[normalize(k)] = v
	}

	return c
}

// Rules 返回规则副本
func (c *Catalog) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	for i, r := range c.rules {
		out[i] = Rule{Category: r.Category, Keywords: append([]string(nil), r.Keywords...)}
	}
	return out
}

// Categorize 根据报修标题和描述识别所需工种，未命中时归为综合维修
// 关键词按子串匹配，规则顺序决定重叠时的归属
func (c *Catalog) Categorize(title, description string) model.Category {
	text := normalize(title + " " + description)
	if text == "" {
		return c.fallback
	}

	for _, r := range c.rules {
		for _, kw := range r.Keywords {
			if strings.Contains(text, kw) {
				return r.Category
			}
		}
	}

	return c.fallback
}

// CanSatisfy 检查维修工工种能否承接所需工种
// 工种相同，或维修工为综合维修时返回 true
func (c *Catalog) CanSatisfy(worker, required model.Category) bool {
	return worker == required || worker == model.CategoryGeneralMaintenance
}

// Parse 解析管理员录入的工种文本，容忍大小写和常见同义词
func (c *Catalog) Parse(freeText string) model.Category {
	key := normalize(freeText)
	if key == "" {
		return c.fallback
	}

	for _, cat := range model.AllCategories() {
		if key == normalize(string(cat)) || key == normalize(cat.DisplayName()) {
			return cat
		}
	}

	if cat, ok := c.synonyms[key]; ok {
		return cat
	}

	return c.fallback
}

// DisplayName 返回工种展示名称
func (c *Catalog) DisplayName(cat model.Category) string {
	return cat.DisplayName()
}

// normalize 小写化，将非字母数字字符（斜杠除外）折叠为单个空格
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '/' {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}
