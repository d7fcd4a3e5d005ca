package cah

// prompt is a black card: the fill-in-the-blank text and how many answer
// cards it takes.
type prompt struct {
	text string
	pick int
}

// A compact built-in deck. Loading custom packs from disk is a rendering
// concern the engine stays out of.
var promptDeck = []prompt{
	{"What's the secret to a long and happy life? ____.", 1},
	{"The office banned ____ after last year's holiday party.", 1},
	{"My therapist says my problems all trace back to ____.", 1},
	{"Scientists have discovered that ____ causes ____.", 2},
	{"Next on the news: local hero saves town with ____.", 1},
	{"The worst part of camping is definitely ____.", 1},
	{"I can't believe the museum has an exhibit about ____.", 1},
	{"Step 1: ____. Step 2: ____. Step 3: profit.", 2},
	{"My autobiography will be titled 'A Life of ____'.", 1},
	{"Nothing ruins a first date faster than ____.", 1},
	{"The school talent show was won by a performance of ____.", 1},
	{"What did I bring back from my last vacation? ____.", 1},
	{"The new self-help craze: thirty days of ____.", 1},
	{"Grandma's secret recipe calls for a pinch of ____.", 1},
	{"My superhero origin story involves ____ and ____.", 2},
	{"The real reason the meeting ran long: ____.", 1},
	{"This year's award for excellence goes to ____.", 1},
	{"I knew the road trip was doomed when we packed ____.", 1},
	{"The fortune cookie just said '____'.", 1},
	{"Future historians will remember this decade for ____.", 1},
}

var answerDeck = []string{
	"a suspiciously confident pigeon",
	"interpretive dance",
	"an unplugged karaoke machine",
	"my collection of novelty mugs",
	"aggressive small talk",
	"a motivational poster of a cat",
	"lukewarm decaf",
	"the office printer's vendetta",
	"an encyclopedic knowledge of ferry schedules",
	"a lifetime supply of bubble wrap",
	"seventeen alarm clocks",
	"an extremely polite heckler",
	"the world's tiniest violin",
	"a rogue shopping cart",
	"unsolicited gardening advice",
	"a dramatic reading of the terms and conditions",
	"my neighbor's trombone practice",
	"an emergency fondue set",
	"the group chat",
	"a firm but fair handshake",
	"three raccoons in a trench coat",
	"a deeply personal spreadsheet",
	"the last slice of pizza",
	"an inspirational air horn",
	"my backup parachute's backup parachute",
	"a strongly worded postcard",
	"the mystery leftovers",
	"an overqualified mall Santa",
	"the decorative towels nobody may use",
	"a weather forecast read as slam poetry",
	"my imaginary corner office",
	"a conga line with no exit strategy",
	"the hold music",
	"an artisanal glass of tap water",
	"a surprisingly judgmental houseplant",
	"the fine print",
	"a one-man kazoo orchestra",
	"my secret sandwich technique",
	"an ill-timed finger gun salute",
	"the elevator small-talk gauntlet",
}
