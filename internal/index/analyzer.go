package index

import (
	"regexp"
	"strings"
)

// analyzer turns text into the terms the vector model counts: lowercase
// word tokens of two or more characters with stop words removed, followed by
// the n-grams of that filtered stream.
type analyzer struct {
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
	ngramMax     int
}

func newAnalyzer(ngramMax int) *analyzer {
	if ngramMax < 1 {
		ngramMax = 1
	}
	return &analyzer{
		tokenPattern: regexp.MustCompile(`[\p{L}\p{N}_]{2,}`),
		stopwords:    englishStopwords,
		ngramMax:     ngramMax,
	}
}

func (a *analyzer) tokens(text string) []string {
	raw := a.tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := a.stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (a *analyzer) terms(text string) []string {
	toks := a.tokens(text)
	if a.ngramMax == 1 || len(toks) < 2 {
		return toks
	}
	out := make([]string, 0, len(toks)*a.ngramMax)
	out = append(out, toks...)
	for n := 2; n <= a.ngramMax; n++ {
		for i := 0; i+n <= len(toks); i++ {
			out = append(out, strings.Join(toks[i:i+n], " "))
		}
	}
	return out
}

var englishStopwords = defaultStopwords()

// IsStopword reports whether the lowercase word w is an English stop word.
func IsStopword(w string) bool {
	_, ok := englishStopwords[w]
	return ok
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "about", "above", "across", "after", "afterwards", "again", "against", "all", "almost",
		"alone", "along", "already", "also", "although", "always", "am", "among", "amongst", "an",
		"and", "another", "any", "anyhow", "anyone", "anything", "anyway", "anywhere", "are", "around",
		"as", "at", "be", "became", "because", "become", "becomes", "becoming", "been", "before",
		"beforehand", "behind", "being", "below", "beside", "besides", "between", "beyond", "both", "but",
		"by", "can", "cannot", "could", "did", "do", "does", "doing", "done", "don", "down", "due", "during",
		"each", "either", "else", "elsewhere", "enough", "etc", "even", "ever", "every", "everyone",
		"everything", "everywhere", "except", "few", "for", "former", "formerly", "from", "further",
		"had", "has", "have", "having", "he", "hence", "her", "here", "hereafter", "hereby", "herein",
		"hers", "herself", "him", "himself", "his", "how", "however", "i", "ie", "if", "in", "indeed",
		"into", "is", "it", "its", "itself", "just", "last", "latter", "least", "less", "made", "many",
		"may", "me", "meanwhile", "might", "more", "moreover", "most", "mostly", "much", "must", "my",
		"myself", "namely", "neither", "never", "nevertheless", "next", "no", "nobody", "none", "nor",
		"not", "nothing", "now", "nowhere", "of", "off", "often", "on", "once", "only", "onto", "or",
		"other", "others", "otherwise", "our", "ours", "ourselves", "out", "over", "own", "per",
		"perhaps", "please", "rather", "re", "same", "seem", "seemed", "seeming", "seems", "several",
		"she", "should", "since", "so", "some", "somehow", "someone", "something", "sometime",
		"sometimes", "somewhere", "still", "such", "than", "that", "the", "their", "theirs", "them",
		"themselves", "then", "thence", "there", "thereafter", "thereby", "therefore", "therein",
		"thereupon", "these", "they", "this", "those", "though", "through", "throughout", "thru", "thus",
		"to", "together", "too", "toward", "towards", "under", "until", "up", "upon", "us", "very", "via",
		"was", "we", "well", "were", "what", "whatever", "when", "whence", "whenever", "where",
		"whereafter", "whereas", "whereby", "wherein", "whereupon", "wherever", "whether", "which",
		"while", "whither", "who", "whoever", "whole", "whom", "whose", "why", "will", "with", "within",
		"without", "would", "yet", "you", "your", "yours", "yourself", "yourselves",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
