package specialization

import (
	"testing"

	"github.com/weixiu/weixiu/pkg/model"
)

func TestCatalog_Categorize(t *testing.T) {
	catalog := DefaultCatalog()

	tests := []struct {
		name        string
		title       string
		description string
		expected    model.Category
	}{
		{"水龙头漏水", "leaking kitchen faucet", "", model.CategoryPlumbing},
		{"描述中命中", "Urgent", "Toilet is clogged again", model.CategoryPlumbing},
		{"门锁优先于木工", "Front door lock broken", "", model.CategoryLocksmith},
		{"木工", "Door hinge squeaks", "", model.CategoryCarpentry},
		{"家电优先于水管", "Dishwasher leaking", "", model.CategoryApplianceRepair},
		{"热水器归水管", "Water heater not working", "", model.CategoryPlumbing},
		{"暖通", "No heat in bedroom", "radiator cold", model.CategoryHVAC},
		{"电工", "Outlet sparks", "", model.CategoryElectrical},
		{"油漆", "Peeling paint in hallway", "", model.CategoryPainting},
		{"堵塞不误判为门锁", "Blocked drain", "", model.CategoryPlumbing},
		{"大小写不敏感", "AIR CONDITIONING broken", "", model.CategoryHVAC},
		{"未命中归综合维修", "Something is odd", "please check", model.CategoryGeneralMaintenance},
		{"空文本", "", "", model.CategoryGeneralMaintenance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := catalog.Categorize(tt.title, tt.description); got != tt.expected {
				t.Errorf("Categorize(%q, %q) = %s, expected %s", tt.title, tt.description, got, tt.expected)
			}
		})
	}
}

func TestCatalog_CategorizeSubstring(t *testing.T) {
	catalog := DefaultCatalog()

	tests := []struct {
		name     string
		text     string
		expected model.Category
	}{
		{"词内命中 wiring", "kitchen needs rewiring", model.CategoryElectrical},
		{"词内命中 spotlight", "spotlight in hallway broken", model.CategoryElectrical},
		{"词内命中 backlight", "backlight on intercom dead", model.CategoryElectrical},
		{"词内命中 plumb", "call a plumber", model.CategoryPlumbing},
		{"词内命中 heat", "overheating radiator", model.CategoryHVAC},
		{"slightly 不命中电工", "door slightly off its hinge", model.CategoryCarpentry},
		{"prevents 不命中暖通", "cabinet door prevents drawer opening", model.CategoryCarpentry},
		{"stubborn 不命中水管", "stubborn stain on wall", model.CategoryPainting},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := catalog.Categorize(tt.text, ""); got != tt.expected {
				t.Errorf("Categorize(%q) = %s, expected %s", tt.text, got, tt.expected)
			}
		})
	}
}

func TestCatalog_SubstringPrecedence(t *testing.T) {
	// 子串同时命中两条规则时，由规则顺序决定
	catalog := NewCatalog([]Rule{
		{Category: model.CategoryLocksmith, Keywords: []string{"lock"}},
		{Category: model.CategoryPlumbing, Keywords: []string{"drain"}},
	}, nil)
	if got := catalog.Categorize("blocked drain", ""); got != model.CategoryLocksmith {
		t.Errorf("first matching rule should win, got %s", got)
	}

	catalog = NewCatalog([]Rule{
		{Category: model.CategoryPlumbing, Keywords: []string{"drain"}},
		{Category: model.CategoryLocksmith, Keywords: []string{"lock"}},
	}, nil)
	if got := catalog.Categorize("blocked drain", ""); got != model.CategoryPlumbing {
		t.Errorf("reordered rules should change the result, got %s", got)
	}
}

func TestCatalog_CanSatisfy(t *testing.T) {
	catalog := DefaultCatalog()

	tests := []struct {
		worker   model.Category
		required model.Category
		expected bool
	}{
		{model.CategoryPlumbing, model.CategoryPlumbing, true},
		{model.CategoryGeneralMaintenance, model.CategoryPlumbing, true},
		{model.CategoryGeneralMaintenance, model.CategoryGeneralMaintenance, true},
		{model.CategoryElectrical, model.CategoryPlumbing, false},
		{model.CategoryPlumbing, model.CategoryGeneralMaintenance, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.worker)+"->"+string(tt.required), func(t *testing.T) {
			if got := catalog.CanSatisfy(tt.worker, tt.required); got != tt.expected {
				t.Errorf("CanSatisfy(%s, %s) = %v, expected %v", tt.worker, tt.required, got, tt.expected)
			}
		})
	}
}

func TestCatalog_ParseSynonyms(t *testing.T) {
	catalog := DefaultCatalog()

	tests := []struct {
		input    string
		expected model.Category
	}{
		{"plumber", model.CategoryPlumbing},
		{"  Plumbing ", model.CategoryPlumbing},
		{"ELECTRICIAN", model.CategoryElectrical},
		{"appliance_repair", model.CategoryApplianceRepair},
		{"Handyman", model.CategoryGeneralMaintenance},
		{"astronaut", model.CategoryGeneralMaintenance},
		{"", model.CategoryGeneralMaintenance},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := catalog.Parse(tt.input); got != tt.expected {
				t.Errorf("Parse(%q) = %s, expected %s", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCatalog_ParseDisplayNameRoundTrip(t *testing.T) {
	catalog := DefaultCatalog()

	for _, c := range model.AllCategories() {
		if got := catalog.Parse(catalog.DisplayName(c)); got != c {
			t.Errorf("Parse(DisplayName(%s)) = %s", c, got)
		}
	}
}

func TestCatalog_RulesAreCopied(t *testing.T) {
	rules := []Rule{{Category: model.CategoryPainting, Keywords: []string{"paint"}}}
	catalog := NewCatalog(rules, nil)

	rules[0].Keywords[0] = "pipe"
	if got := catalog.Categorize("pipe burst", ""); got != model.CategoryGeneralMaintenance {
		t.Errorf("mutating input rules should not affect catalog, got %s", got)
	}

	out := catalog.Rules()
	out[0].Keywords[0] = "pipe"
	if got := catalog.Categorize("paint job", ""); got != model.CategoryPainting {
		t.Errorf("mutating Rules() output should not affect catalog, got %s", got)
	}
}
