package classifier

// chapterAffinity maps each chapter to the chapters products commonly
// cross-list under. Used to widen chapter searches when a direct signal
// exists but the catalog hit is thin.
var chapterAffinity = map[string][]string{
	"16": {"17", "18", "19", "20"},
	"17": {"16", "18", "19", "20"},
	"18": {"16", "17", "19", "20"},
	"19": {"16", "17", "18", "20"},
	"20": {"16", "17", "18", "19"},
	"39": {"40", "84", "85"},
	"40": {"39", "64", "87"},
	"42": {"61", "62", "64"},
	"61": {"62", "63", "42"},
	"62": {"61", "63", "42"},
	"63": {"61", "62", "42"},
	"72": {"73", "74", "76"},
	"73": {"72", "74", "76"},
	"84": {"85", "87", "90"},
	"85": {"84", "90", "94"},
	"87": {"84", "40", "73"},
	"90": {"84", "85", "94"},
}

// businessChapters maps a declared business category to the chapters its
// products usually fall in.
var businessChapters = map[string][]string{
	"Electronics":   {"85", "84", "90"},
	"Automotive":    {"87", "84", "73", "40"},
	"Textiles":      {"61", "62", "63", "42"},
	"Manufacturing": {"72", "73", "84", "39"},
	"Food":          {"16", "17", "18", "19", "20"},
}

// keywordChapters maps strong description tokens directly to chapters.
var keywordChapters = map[string]string{
	"electrical":  "85",
	"electronic":  "85",
	"circuit":     "85",
	"wire":        "85",
	"cable":       "85",
	"battery":     "85",
	"machine":     "84",
	"machinery":   "84",
	"engine":      "84",
	"pump":        "84",
	"computer":    "84",
	"vehicle":     "87",
	"automotive":  "87",
	"car":         "87",
	"truck":       "87",
	"cotton":      "61",
	"knitted":     "61",
	"shirt":       "61",
	"woven":       "62",
	"trousers":    "62",
	"blanket":     "63",
	"leather":     "42",
	"handbag":     "42",
	"footwear":    "64",
	"shoe":        "64",
	"plastic":     "39",
	"polymer":     "39",
	"rubber":      "40",
	"tire":        "40",
	"iron":        "72",
	"steel":       "73",
	"copper":      "74",
	"aluminum":    "76",
	"instrument":  "90",
	"optical":     "90",
	"medical":     "90",
	"furniture":   "94",
	"lamp":        "94",
	"chocolate":   "18",
	"sugar":       "17",
	"cereal":      "19",
	"vegetable":   "20",
	"meat":        "16",
}

// chapterSignal is one chapter the pipeline should search, with whether the
// signal was direct (keyword or business category) or inferred via affinity.
type chapterSignal struct {
	Chapter string
	Keyword string
	Direct  bool
}

// inferChapters derives the chapters worth searching from the description
// tokens and the optional business category. Direct signals come first;
// affinity expansions of direct signals follow, deduplicated.
func inferChapters(description, businessType string) []chapterSignal {
	seen := make(map[string]struct{})
	var signals []chapterSignal
	add := func(sig chapterSignal) {
		if _, ok := seen[sig.Chapter]; ok {
			return
		}
		seen[sig.Chapter] = struct{}{}
		signals = append(signals, sig)
	}

	for _, token := range tokenize(description) {
		if ch, ok := keywordChapters[token]; ok {
			add(chapterSignal{Chapter: ch, Keyword: token, Direct: true})
		}
	}

	for _, ch := range businessChapters[businessType] {
		add(chapterSignal{Chapter: ch, Direct: true})
	}

	// Affinity expansion only widens direct signals.
	direct := make([]chapterSignal, len(signals))
	copy(direct, signals)
	for _, sig := range direct {
		for _, related := range chapterAffinity[sig.Chapter] {
			add(chapterSignal{Chapter: related, Keyword: sig.Keyword})
		}
	}

	return signals
}
