// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

package validators

// synonym maps a spoken phrase to its canonical value. Tables are scanned in
// order and the first phrase found wins, so multi-word phrases come before
// the single words they contain.
type synonym struct {
	phrase string
	value  string
}

// A bare "dark" means black only when no colour word follows it, so it is
// listed after every English colour.
var colorTable = []synonym{
	{"dark brown", "dark_brown"},
	{"light brown", "brown"},
	{"reddish brown", "red"},
	{"brownish red", "red"},
	{"dark red", "red"},
	{"dark grey", "grey"},
	{"dark gray", "grey"},
	{"dark yellow", "yellow"},
	{"black", "black"},
	{"red", "red"},
	{"reddish", "red"},
	{"brown", "brown"},
	{"yellow", "yellow"},
	{"yellowish", "yellow"},
	{"grey", "grey"},
	{"gray", "grey"},
	{"white", "white"},
	{"dark", "black"},
	{"गहरा भूरा", "dark_brown"},
	{"गहरा लाल", "red"},
	{"काला", "black"},
	{"काली", "black"},
	{"लाल", "red"},
	{"भूरा", "brown"},
	{"भूरी", "brown"},
	{"पीला", "yellow"},
	{"पीली", "yellow"},
	{"धूसर", "grey"},
	{"सलेटी", "grey"},
	{"सफेद", "white"},
	{"kala", "black"},
	{"kali", "black"},
	{"lal", "red"},
	{"bhura", "brown"},
	{"peela", "yellow"},
}

var moistureTable = []synonym{
	{"very dry", "dry"},
	{"slightly moist", "moist"},
	{"little moist", "moist"},
	{"very wet", "wet"},
	{"waterlogged", "wet"},
	{"dry", "dry"},
	{"moist", "moist"},
	{"damp", "moist"},
	{"wet", "wet"},
	{"soggy", "wet"},
	{"थोड़ी नम", "moist"},
	{"सूखी", "dry"},
	{"सूखा", "dry"},
	{"नम", "moist"},
	{"गीली", "wet"},
	{"गीला", "wet"},
	{"sukhi", "dry"},
	{"geeli", "wet"},
}

var smellTable = []synonym{
	{"no smell", "none"},
	{"no odour", "none"},
	{"no odor", "none"},
	{"earthy", "earthy"},
	{"sweet", "earthy"},
	{"fresh", "earthy"},
	{"sour", "sour"},
	{"rotten", "rotten"},
	{"foul", "rotten"},
	{"bad", "rotten"},
	{"odourless", "none"},
	{"none", "none"},
	{"कोई गंध नहीं", "none"},
	{"गंध नहीं", "none"},
	{"मिट्टी जैसी", "earthy"},
	{"सौंधी", "earthy"},
	{"खट्टी", "sour"},
	{"सड़ी", "rotten"},
	{"बदबू", "rotten"},
}

var phWordTable = []synonym{
	{"slightly acidic", "acidic"},
	{"slightly alkaline", "alkaline"},
	{"acidic", "acidic"},
	{"acid", "acidic"},
	{"sour", "acidic"},
	{"neutral", "neutral"},
	{"normal", "neutral"},
	{"alkaline", "alkaline"},
	{"basic", "alkaline"},
	{"अम्लीय", "acidic"},
	{"तटस्थ", "neutral"},
	{"सामान्य", "neutral"},
	{"क्षारीय", "alkaline"},
}

var soilTypeTable = []synonym{
	{"black cotton", "black_cotton"},
	{"sandy loam", "loamy"},
	{"clay loam", "loamy"},
	{"clay", "clay"},
	{"clayey", "clay"},
	{"sandy", "sandy"},
	{"sand", "sandy"},
	{"loamy", "loamy"},
	{"loam", "loamy"},
	{"silty", "silty"},
	{"silt", "silty"},
	{"alluvial", "alluvial"},
	{"laterite", "laterite"},
	{"काली कपास", "black_cotton"},
	{"काली मिट्टी", "black_cotton"},
	{"चिकनी", "clay"},
	{"रेतीली", "sandy"},
	{"बलुई", "sandy"},
	{"दोमट", "loamy"},
	{"गाद", "silty"},
	{"जलोढ़", "alluvial"},
}

// Negations come first: "not a single one" must not reach "one".
var earthwormTable = []synonym{
	{"not a single", "none"},
	{"not even one", "none"},
	{"not one", "none"},
	{"not any", "none"},
	{"no worms", "none"},
	{"no earthworms", "none"},
	{"didn't see any", "none"},
	{"did not see any", "none"},
	{"didn't find any", "none"},
	{"did not find any", "none"},
	{"haven't seen any", "none"},
	{"never seen", "none"},
	{"not a lot", "few"},
	{"not many", "few"},
	{"very few", "few"},
	{"a lot", "many"},
	{"lots", "many"},
	{"plenty", "many"},
	{"many", "many"},
	{"several", "many"},
	{"few", "few"},
	{"some", "few"},
	{"one", "few"},
	{"two", "few"},
	{"none", "none"},
	{"no", "none"},
	{"zero", "none"},
	{"yes", "few"},
	{"एक भी नहीं", "none"},
	{"कोई नहीं", "none"},
	{"बहुत नहीं", "few"},
	{"ज्यादा नहीं", "few"},
	{"बहुत", "many"},
	{"ज्यादा", "many"},
	{"थोड़े", "few"},
	{"कुछ", "few"},
	{"नहीं", "none"},
	{"हाँ", "few"},
}

var fertilizerTable = []synonym{
	{"no fertilizer", "none"},
	{"nothing", "none"},
	{"none", "none"},
	{"vermicompost", "vermicompost"},
	{"cow dung", "manure"},
	{"urea", "urea"},
	{"dap", "dap"},
	{"npk", "npk"},
	{"potash", "potash"},
	{"compost", "compost"},
	{"manure", "manure"},
	{"gobar", "manure"},
	{"organic", "compost"},
	{"कोई नहीं", "none"},
	{"वर्मी कम्पोस्ट", "vermicompost"},
	{"यूरिया", "urea"},
	{"डीएपी", "dap"},
	{"पोटाश", "potash"},
	{"कम्पोस्ट", "compost"},
	{"गोबर", "manure"},
	{"जैविक", "compost"},
}

// unknownPhrases mark an explicit "I don't know" answer. They are checked
// before any table so that e.g. "no idea" is never read as "no".
var unknownPhrases = []string{
	"don't know",
	"dont know",
	"do not know",
	"not sure",
	"no idea",
	"unsure",
	"can't tell",
	"cannot tell",
	"how do i",
	"how to",
	"help",
	"pata nahi",
	"pata nahin",
	"पता नहीं",
	"नहीं पता",
	"मालूम नहीं",
	"नहीं मालूम",
	"कैसे",
	"मदद",
}
