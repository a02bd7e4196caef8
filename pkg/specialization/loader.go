package specialization

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	apperrors "github.com/weixiu/weixiu/pkg/errors"
	"github.com/weixiu/weixiu/pkg/model"
)

// File 关键词配置文件结构
//
//	rules:
//	  - category: locksmith
//	    keywords: [lock, deadbolt]
//	synonyms:
//	  plumber: plumbing
type File struct {
	Rules    []Rule                    `yaml:"rules"`
	Synonyms map[string]model.Category `yaml:"synonyms"`
}

// LoadFile 从 YAML 文件加载工种目录
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开关键词文件失败: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// Load 从 YAML 读取工种目录；未提供 synonyms 时沿用默认同义词
func Load(r io.Reader) (*Catalog, error) {
	var file File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, "关键词文件解析失败")
	}

	if err := file.Validate(); err != nil {
		return nil, err
	}

	synonyms := file.Synonyms
	if synonyms == nil {
		synonyms = DefaultSynonyms()
	}

	return NewCatalog(file.Rules, synonyms), nil
}

// Validate 校验关键词配置
func (f *File) Validate() error {
	var ve apperrors.ValidationErrors

	if len(f.Rules) == 0 {
		ve.Add("rules", "至少需要一条规则")
	}

	seen := make(map[model.Category]bool)
	for i, r := range f.Rules {
		field := fmt.Sprintf("rules[%d]", i)
		if !r.Category.Valid() {
			ve.Add(field+".category", fmt.Sprintf("未知工种 %q", r.Category))
		}
		if seen[r.Category] {
			ve.Add(field+".category", fmt.Sprintf("工种 %q 重复", r.Category))
		}
		seen[r.Category] = true
		if len(r.Keywords) == 0 {
			ve.Add(field+".keywords", "关键词不能为空")
		}
	}

	for k, v := range f.Synonyms {
		if !v.Valid() {
			ve.Add("synonyms."+k, fmt.Sprintf("未知工种 %q", v))
		}
	}

	if ve.HasErrors() {
		return ve.ToAppError()
	}
	return nil
}
