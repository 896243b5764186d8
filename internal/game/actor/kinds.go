package actor

// Role is the single occupation an actor holds.
type Role string

const (
	RolePeasant    Role = "PEASANT"
	RoleFarmer     Role = "FARMER"
	RoleWoodcutter Role = "WOODCUTTER"
	RoleMiner      Role = "MINER"
	RoleBlacksmith Role = "BLACKSMITH"
	RoleMerchant   Role = "MERCHANT"
	RoleSoldier    Role = "SOLDIER"
	RoleLord       Role = "LORD"
)

// BaseRole is assigned to new actors and to deposed rulers.
const BaseRole = RolePeasant

// RulerRole is held by the ruler of a region; only promotion grants it.
const RulerRole = RoleLord

// AllRoles lists every role in declaration order.
var AllRoles = []Role{RolePeasant, RoleFarmer, RoleWoodcutter, RoleMiner, RoleBlacksmith, RoleMerchant, RoleSoldier, RoleLord}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, x := range AllRoles {
		if x == r {
			return true
		}
	}
	return false
}

// Resource identifies a stockpiled good.
type Resource string

const (
	Gold    Resource = "gold"
	Wood    Resource = "wood"
	Stone   Resource = "stone"
	IronOre Resource = "iron_ore"
	Iron    Resource = "iron"
	Grain   Resource = "grain"
	Flour   Resource = "flour"
	Bread   Resource = "bread"
	Fish    Resource = "fish"
	Herbs   Resource = "herbs"
	Hide    Resource = "hide"
	// Swords is the siege currency.
	Swords Resource = "swords"
	// Armor is siege armor, staked on the throne and absorbed before hp.
	Armor Resource = "armor"
)

// AllResources lists every resource kind.
var AllResources = []Resource{Gold, Wood, Stone, IronOre, Iron, Grain, Flour, Bread, Fish, Herbs, Hide, Swords, Armor}

// Valid reports whether r is a known resource.
func (r Resource) Valid() bool {
	for _, x := range AllResources {
		if x == r {
			return true
		}
	}
	return false
}

// Skill identifies a trained proficiency.
type Skill string

const (
	Farming     Skill = "farming"
	Woodcutting Skill = "woodcutting"
	Mining      Skill = "mining"
	Smithing    Skill = "smithing"
	Cooking     Skill = "cooking"
	Fishing     Skill = "fishing"
	Trading     Skill = "trading"
	Combat      Skill = "combat"
	Leadership  Skill = "leadership"
)

// AllSkills lists every skill kind.
var AllSkills = []Skill{Farming, Woodcutting, Mining, Smithing, Cooking, Fishing, Trading, Combat, Leadership}

// Valid reports whether s is a known skill.
func (s Skill) Valid() bool {
	for _, x := range AllSkills {
		if x == s {
			return true
		}
	}
	return false
}

// Slot is an equipment position.
type Slot string

const (
	SlotTool   Slot = "tool"
	SlotWeapon Slot = "weapon"
	SlotArmor  Slot = "armor"
)

// Valid reports whether s is a known slot.
func (s Slot) Valid() bool {
	return s == SlotTool || s == SlotWeapon || s == SlotArmor
}

// Item kinds that can be equipped.
const (
	ItemAxe     = "axe"
	ItemPickaxe = "pickaxe"
	ItemHoe     = "hoe"
	ItemRod     = "rod"
	ItemHammer  = "hammer"
	ItemBlade   = "blade"
	ItemMail    = "mail"
)

// ItemDef is the static description of an item kind.
type ItemDef struct {
	Slot          Slot
	MaxDurability int
}

// Items maps every craftable item kind to its definition.
var Items = map[string]ItemDef{
	ItemAxe:     {Slot: SlotTool, MaxDurability: 50},
	ItemPickaxe: {Slot: SlotTool, MaxDurability: 50},
	ItemHoe:     {Slot: SlotTool, MaxDurability: 60},
	ItemRod:     {Slot: SlotTool, MaxDurability: 40},
	ItemHammer:  {Slot: SlotTool, MaxDurability: 80},
	ItemBlade:   {Slot: SlotWeapon, MaxDurability: 100},
	ItemMail:    {Slot: SlotArmor, MaxDurability: 120},
}

// StartingTool is the tool issued to a fresh actor of each role.
var StartingTool = map[Role]string{
	RolePeasant:    ItemAxe,
	RoleFarmer:     ItemHoe,
	RoleWoodcutter: ItemAxe,
	RoleMiner:      ItemPickaxe,
	RoleBlacksmith: ItemHammer,
}

// Passive income upgrades and their gold per minute per level.
const (
	UpgradeMillShare  = "mill_share"
	UpgradeTollBridge = "toll_bridge"
)

// PassiveIncome maps each income upgrade to gold per minute per level.
var PassiveIncome = map[string]int{
	UpgradeMillShare:  1,
	UpgradeTollBridge: 2,
}

// BuffVigor reduces stamina costs by its magnitude.
const BuffVigor = "vigor"
