package model

// Category 维修工种（封闭枚举）
type Category string

const (
	CategoryPlumbing           Category = "plumbing"            // 水管
	CategoryElectrical         Category = "electrical"          // 电工
	CategoryHVAC               Category = "hvac"                // 暖通空调
	CategoryCarpentry          Category = "carpentry"           // 木工
	CategoryPainting           Category = "painting"            // 油漆
	CategoryLocksmith          Category = "locksmith"           // 开锁/门锁
	CategoryApplianceRepair    Category = "appliance_repair"    // 家电维修
	CategoryGeneralMaintenance Category = "general_maintenance" // 综合维修（可替代任意工种）
)

var allCategories = []Category{
	CategoryPlumbing,
	CategoryElectrical,
	CategoryHVAC,
	CategoryCarpentry,
	CategoryPainting,
	CategoryLocksmith,
	CategoryApplianceRepair,
	CategoryGeneralMaintenance,
}

var displayNames = map[Category]string{
	CategoryPlumbing:           "Plumbing",
	CategoryElectrical:         "Electrical",
	CategoryHVAC:               "HVAC",
	CategoryCarpentry:          "Carpentry",
	CategoryPainting:           "Painting",
	CategoryLocksmith:          "Locksmith",
	CategoryApplianceRepair:    "Appliance Repair",
	CategoryGeneralMaintenance: "General Maintenance",
}

// AllCategories 返回全部工种（固定顺序）
func AllCategories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

// Valid 检查是否为已知工种
func (c Category) Valid() bool {
	_, ok := displayNames[c]
	return ok
}

// DisplayName 返回展示名称
func (c Category) DisplayName() string {
	if name, ok := displayNames[c]; ok {
		return name
	}
	return string(c)
}

// IsGeneral 是否为综合维修
func (c Category) IsGeneral() bool {
	return c == CategoryGeneralMaintenance
}
