package rendezvous

var animals = []string{
	"kitten", "puppy", "bunny", "panda", "koala", "fox", "otter", "hedgehog", "squirrel", "hamster",
	"penguin", "flamingo", "pelican", "sparrow", "robin", "toucan", "parrot", "dolphin", "whale", "narwhal",
	"raccoon", "beaver", "ferret", "weasel", "mole", "fawn", "lamb", "calf", "chick", "duckling",
}

var scenery = []string{
	"sunbeam", "stardust", "meadow", "willow", "ember", "breeze", "glimmer", "echo", "marble", "maple",
	"hazel", "poppy", "pixel", "twig", "pebble", "ripple", "drift", "frost", "dune", "cove",
}

var adjectives = []string{
	"tiny", "happy", "sleepy", "fluffy", "sparkly", "cheery", "silly", "jolly", "cozy", "shiny",
	"breezy", "dusty", "mellow", "quiet", "swift", "bright", "gentle", "merry", "plucky", "snug",
}
