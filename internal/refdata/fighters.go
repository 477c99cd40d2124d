package refdata

// Fighter is a static roster entry. The coordinator treats fighter IDs as
// opaque; the catalog exists so queue entries and sessions can be validated
// against a known roster.
type Fighter struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

var Fighters = []Fighter{
	{ID: "mario", Name: "Mario"},
	{ID: "donkey-kong", Name: "Donkey Kong"},
	{ID: "link", Name: "Link"},
	{ID: "samus", Name: "Samus"},
	{ID: "yoshi", Name: "Yoshi"},
	{ID: "kirby", Name: "Kirby"},
	{ID: "fox", Name: "Fox"},
	{ID: "pikachu", Name: "Pikachu"},
	{ID: "luigi", Name: "Luigi"},
	{ID: "ness", Name: "Ness"},
	{ID: "captain-falcon", Name: "Captain Falcon"},
	{ID: "jigglypuff", Name: "Jigglypuff"},
	{ID: "peach", Name: "Peach"},
	{ID: "bowser", Name: "Bowser"},
	{ID: "ice-climbers", Name: "Ice Climbers"},
	{ID: "sheik", Name: "Sheik"},
	{ID: "zelda", Name: "Zelda"},
	{ID: "falco", Name: "Falco"},
	{ID: "marth", Name: "Marth"},
	{ID: "ganondorf", Name: "Ganondorf"},
	{ID: "mewtwo", Name: "Mewtwo"},
	{ID: "roy", Name: "Roy"},
	{ID: "mr-game-and-watch", Name: "Mr. Game & Watch"},
	{ID: "meta-knight", Name: "Meta Knight"},
	{ID: "pit", Name: "Pit"},
	{ID: "wario", Name: "Wario"},
	{ID: "snake", Name: "Snake"},
	{ID: "ike", Name: "Ike"},
	{ID: "diddy-kong", Name: "Diddy Kong"},
	{ID: "lucas", Name: "Lucas"},
	{ID: "sonic", Name: "Sonic"},
	{ID: "king-dedede", Name: "King Dedede"},
	{ID: "olimar", Name: "Olimar"},
	{ID: "lucario", Name: "Lucario"},
	{ID: "rob", Name: "R.O.B."},
	{ID: "toon-link", Name: "Toon Link"},
	{ID: "wolf", Name: "Wolf"},
	{ID: "villager", Name: "Villager"},
	{ID: "mega-man", Name: "Mega Man"},
	{ID: "wii-fit-trainer", Name: "Wii Fit Trainer"},
	{ID: "rosalina", Name: "Rosalina & Luma"},
	{ID: "little-mac", Name: "Little Mac"},
	{ID: "greninja", Name: "Greninja"},
	{ID: "palutena", Name: "Palutena"},
	{ID: "pac-man", Name: "Pac-Man"},
	{ID: "robin", Name: "Robin"},
	{ID: "shulk", Name: "Shulk"},
	{ID: "bowser-jr", Name: "Bowser Jr."},
	{ID: "duck-hunt", Name: "Duck Hunt"},
	{ID: "ryu", Name: "Ryu"},
	{ID: "cloud", Name: "Cloud"},
	{ID: "corrin", Name: "Corrin"},
	{ID: "bayonetta", Name: "Bayonetta"},
	{ID: "inkling", Name: "Inkling"},
	{ID: "ridley", Name: "Ridley"},
	{ID: "simon", Name: "Simon"},
	{ID: "king-k-rool", Name: "King K. Rool"},
	{ID: "isabelle", Name: "Isabelle"},
	{ID: "incineroar", Name: "Incineroar"},
	{ID: "piranha-plant", Name: "Piranha Plant"},
	{ID: "joker", Name: "Joker"},
	{ID: "hero", Name: "Hero"},
	{ID: "banjo-kazooie", Name: "Banjo & Kazooie"},
	{ID: "terry", Name: "Terry"},
	{ID: "byleth", Name: "Byleth"},
	{ID: "min-min", Name: "Min Min"},
	{ID: "steve", Name: "Steve"},
	{ID: "sephiroth", Name: "Sephiroth"},
	{ID: "pyra-mythra", Name: "Pyra/Mythra"},
	{ID: "kazuya", Name: "Kazuya"},
	{ID: "sora", Name: "Sora"},
}

// IsKnownFighter reports whether id exists in the roster.
func IsKnownFighter(id string) bool {
	for _, f := range Fighters {
		if f.ID == id {
			return true
		}
	}
	return false
}
