package specialization

import "github.com/weixiu/weixiu/pkg/model"

// DefaultRules 默认关键词规则
// 顺序有意为之：门锁先于木工（"door lock"），家电先于水管（"dishwasher leak"），
// 水管先于暖通（"water heater"）。关键词按子串匹配，避免选用会落在常见词内部的短词
// （如 "lock" 之于 "blocked"、"vent" 之于 "prevent"、"light" 之于 "slightly"）
func DefaultRules() []Rule {
	return []Rule{
		{
			Category: model.CategoryLocksmith,
			Keywords: []string{
				"locksmith", "door lock", "deadbolt", "padlock", "rekey", "locked out",
				"lock jam", "lock stuck", "lock broke", "keyhole", "key stuck", "key broke",
				"lost key", "spare key", "keycard",
			},
		},
		{
			Category: model.CategoryApplianceRepair,
			Keywords: []string{
				"appliance", "refrigerator", "fridge", "freezer", "dishwasher",
				"washing machine", "washer", "dryer", "oven", "stove", "range hood",
				"microwave", "ice maker",
			},
		},
		{
			Category: model.CategoryPlumbing,
			Keywords: []string{
				"plumb", "leak", "faucet", "pipe", "drain", "clog", "toilet",
				"sink", "shower", "bathtub", "sewer", "water heater", "water pressure",
				"garbage disposal",
			},
		},
		{
			Category: model.CategoryElectrical,
			Keywords: []string{
				"electric", "outlet", "socket", "wiring", "wire", "breaker", "fuse box",
				"blown fuse", "fuse blown", "spotlight", "backlight", "lights", "light bulb",
				"light fixture", "light switch", "lighting", "ceiling light", "switch",
				"power", "spark",
			},
		},
		{
			Category: model.CategoryHVAC,
			Keywords: []string{
				"hvac", "heat", "furnace", "boiler", "radiator", "air condition", "a/c",
				"ac unit", "thermostat", "ventilation", "air vent", "vent cover",
				"exhaust fan", "cooling", "ductwork", "air duct",
			},
		},
		{
			Category: model.CategoryPainting,
			Keywords: []string{"paint", "peeling", "primer", "stain on wall", "touch up"},
		},
		{
			Category: model.CategoryCarpentry,
			Keywords: []string{
				"carpent", "door", "cabinet", "drawer", "shelf", "shelves", "wood",
				"hinge", "floorboard", "baseboard", "trim", "window frame", "stair",
			},
		},
	}
}

// DefaultSynonyms 默认工种同义词（用于 Parse）
func DefaultSynonyms() map[string]model.Category {
	return map[string]model.Category{
		"plumber":          model.CategoryPlumbing,
		"pipes":            model.CategoryPlumbing,
		"electrician":      model.CategoryElectrical,
		"electric":         model.CategoryElectrical,
		"electricity":      model.CategoryElectrical,
		"heating":          model.CategoryHVAC,
		"air conditioning": model.CategoryHVAC,
		"heating cooling":  model.CategoryHVAC,
		"hvac technician":  model.CategoryHVAC,
		"carpenter":        model.CategoryCarpentry,
		"woodwork":         model.CategoryCarpentry,
		"joiner":           model.CategoryCarpentry,
		"painter":          model.CategoryPainting,
		"decorator":        model.CategoryPainting,
		"locks":            model.CategoryLocksmith,
		"lock":             model.CategoryLocksmith,
		"keys":             model.CategoryLocksmith,
		"appliance":        model.CategoryApplianceRepair,
		"appliances":       model.CategoryApplianceRepair,
		"appliance tech":   model.CategoryApplianceRepair,
		"handyman":         model.CategoryGeneralMaintenance,
		"general":          model.CategoryGeneralMaintenance,
		"maintenance":      model.CategoryGeneralMaintenance,
	}
}

// DefaultCatalog 返回内置工种目录
func DefaultCatalog() *Catalog {
	return NewCatalog(DefaultRules(), DefaultSynonyms())
}
