package prompt

import "math"

// Option selects how the user text is turned into a prompt
type Option string

// Supported options, as sent by clients in the "option" field
const (
	OptionSentenceCorrection  Option = "sentence correction"
	OptionParaphraser         Option = "paraphraser"
	OptionReportMaking        Option = "report making"
	OptionTableOfContent      Option = "table of content"
	OptionCompareReviewPapers Option = "compare review papers"
	OptionAPACitation         Option = "apa citation"
	OptionProgramming         Option = "programming"
	OptionMath                Option = "math"
	OptionWriting             Option = "writing"
	OptionWebsite             Option = "website"
)

// Defaults used by the programming option when the client leaves them out
const (
	DefaultLanguage = "C++"
	DefaultTask     = "Solve"
)

// Input carries the normalized text and the auxiliary request fields
type Input struct {
	Text     string
	Option   Option
	Language string
	Task     string
	Number   string
}

type builder func(in Input, maxChars int) string

var builders = map[Option]builder{
	OptionSentenceCorrection: prefixed("Correct it "),
	OptionParaphraser:        prefixed("Paraphrase it "),
	OptionReportMaking:       prefixed("Create report "),
	OptionTableOfContent:     prefixed("write table of content "),
	OptionCompareReviewPapers: func(in Input, _ int) string {
		return in.Text + " comparison of existing papers " + in.Number + " don't add conclusion and introduction"
	},
	OptionAPACitation: prefixed("APA citation "),
	OptionProgramming: programmingPrompt,
	OptionMath:        prefixed("Solve "),
	OptionWriting: func(in Input, _ int) string {
		return "Write " + in.Task + in.Text
	},
	OptionWebsite: func(in Input, _ int) string {
		return "provide SEO " + in.Task + in.Text
	},
}

func prefixed(prefix string) builder {
	return func(in Input, _ int) string {
		return prefix + in.Text
	}
}

// programmingPrompt glues language, task and text together without separators.
// When that is over the limit the user text is dropped.
func programmingPrompt(in Input, maxChars int) string {
	language := in.Language
	if language == "" {
		language = DefaultLanguage
	}
	task := in.Task
	if task == "" {
		task = DefaultTask
	}

	candidate := language + task + in.Text
	if length(candidate) > maxChars {
		return language + task
	}
	return candidate
}

// Options lists every supported option in a stable order
func Options() []Option {
	return []Option{
		OptionSentenceCorrection,
		OptionParaphraser,
		OptionReportMaking,
		OptionTableOfContent,
		OptionCompareReviewPapers,
		OptionAPACitation,
		OptionProgramming,
		OptionMath,
		OptionWriting,
		OptionWebsite,
	}
}

// Supported reports whether option has a dedicated prompt rule
func Supported(option Option) bool {
	_, ok := builders[option]
	return ok
}

// MaxAffixCharacters is the longest text any option adds around the user
// text when the auxiliary fields are empty
func MaxAffixCharacters() int {
	longest := 0
	for _, build := range builders {
		if n := length(build(Input{}, math.MaxInt)); n > longest {
			longest = n
		}
	}
	return longest
}
