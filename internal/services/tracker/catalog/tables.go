package catalog

var regions = map[int]string{
	1: "Kanto",
	2: "Johto",
	3: "Hoenn",
}

var champions = map[int]string{
	1: "Blue",
	2: "Lance",
	3: "Steven",
}

type gym struct {
	leader string
	badge  string
}

var gymLeaders = map[int][]gym{
	1: {
		{"Brock", "Boulder"}, {"Misty", "Cascade"}, {"Lt. Surge", "Thunder"}, {"Erika", "Rainbow"},
		{"Koga", "Soul"}, {"Sabrina", "Marsh"}, {"Blaine", "Volcano"}, {"Giovanni", "Earth"},
	},
	2: {
		{"Falkner", "Zephyr"}, {"Bugsy", "Hive"}, {"Whitney", "Plain"}, {"Morty", "Fog"},
		{"Chuck", "Storm"}, {"Jasmine", "Mineral"}, {"Pryce", "Glacier"}, {"Clair", "Rising"},
	},
	3: {
		{"Roxanne", "Stone"}, {"Brawly", "Knuckle"}, {"Wattson", "Dynamo"}, {"Flannery", "Heat"},
		{"Norman", "Balance"}, {"Winona", "Feather"}, {"Tate & Liza", "Mind"}, {"Juan/Wallace", "Rain"},
	},
}

type hmAchievement struct {
	name   string
	rarity string
	points int
}

var hmAchievements = map[string]hmAchievement{
	"cut":      {name: "Cutting Edge", rarity: RarityCommon, points: 20},
	"fly":      {name: "Wings of Freedom", rarity: RarityUncommon, points: 25},
	"surf":     {name: "Surfer Dude", rarity: RarityRare, points: 30},
	"strength": {name: "Strong Foundation", rarity: RarityUncommon, points: 25},
}

type storyFlag struct {
	id          string
	name        string
	description string
	address     uint32
	condition   string
	rarity      string
	points      int
}

// Script-progress flags on the handheld titles. The GBA layouts keep story
// progress in encrypted save blocks and have none.
var storyFlags = map[int][]storyFlag{
	1: {
		{id: "pokedex_obtained", name: "Research Assistant", description: "Receive the Pokedex from Professor Oak",
			address: 0xD74B, condition: "> 2", rarity: RarityCommon, points: 15},
		{id: "parcel_delivered", name: "Special Delivery", description: "Deliver Oak's Parcel to Professor Oak",
			address: 0xD74B, condition: "> 4", rarity: RarityCommon, points: 15},
		{id: "fuji_rescued", name: "Tower Hero", description: "Rescue Mr. Fuji from Team Rocket at Pokemon Tower",
			address: 0xD7A3, condition: "> 4", rarity: RarityRare, points: 50},
		{id: "silph_saved", name: "Corporate Savior", description: "Defeat Giovanni and save Silph Co",
			address: 0xD839, condition: "> 4", rarity: RarityEpic, points: 75},
	},
	2: {
		{id: "pokedex_obtained", name: "Research Assistant", description: "Receive the Pokedex from Professor Oak",
			address: 0xD74B, condition: "> 0", rarity: RarityCommon, points: 15},
		{id: "rival_first", name: "First Blood", description: "Defeat your rival for the first time",
			address: 0xD74C, condition: "> 2", rarity: RarityCommon, points: 15},
		{id: "team_rocket_hideout", name: "Hideout Hunter", description: "Clear the Team Rocket Hideout in Mahogany Town",
			address: 0xD84A, condition: "& 0x01", rarity: RarityRare, points: 50},
		{id: "radio_tower", name: "Airwave Liberator", description: "Rescue the Radio Tower from Team Rocket",
			address: 0xD84A, condition: "& 0x02", rarity: RarityEpic, points: 75},
		{id: "elite_four_access", name: "Victory Road Access", description: "Gain access to the Elite Four at Indigo Plateau",
			address: 0xD74E, condition: "> 0", rarity: RarityRare, points: 40},
	},
}
