package verify

import (
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"
	"gonum.org/v1/gonum/floats"
)

func exactMatch(expected, submitted string) bool {
	return strings.EqualFold(expected, submitted)
}

func numericMatch(expected, submitted string) bool {
	a, ok := parseNumber(expected)
	if !ok {
		return false
	}
	b, ok := parseNumber(submitted)
	if !ok {
		return false
	}

	scale := math.Max(math.Max(math.Abs(a), math.Abs(b)), 1)
	return math.Abs(a-b) <= NumericEpsilon*scale
}

func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// similarity 基于最长匹配块的相似度 2*M/T，取值 0~1
func similarity(a, b string) float64 {
	ra := strings.Split(strings.ToLower(a), "")
	rb := strings.Split(strings.ToLower(b), "")
	if len(ra) == 0 && len(rb) == 0 {
		return 1
	}
	return difflib.NewMatcher(ra, rb).Ratio()
}

func fuzzyMatch(expected, submitted string) bool {
	return similarity(expected, submitted) >= FuzzyThreshold
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func (e *Engine) semanticMatch(expected, submitted string) bool {
	if e.embedder == nil {
		return false
	}

	a := e.sentenceVector(tokenize(expected))
	b := e.sentenceVector(tokenize(submitted))
	if a == nil || b == nil || len(a) != len(b) {
		return false
	}

	return cosine(a, b) >= SemanticThreshold
}

// sentenceVector 已知词向量的平均值，没有已知词时返回 nil
func (e *Engine) sentenceVector(tokens []string) []float64 {
	var sum []float64
	n := 0
	for _, tok := range tokens {
		vec, ok := e.embedder.Vector(tok)
		if !ok {
			continue
		}
		if sum == nil {
			sum = make([]float64, len(vec))
		}
		if len(vec) != len(sum) {
			continue
		}
		floats.Add(sum, vec)
		n++
	}
	if n == 0 {
		return nil
	}

	floats.Scale(1/float64(n), sum)
	return sum
}

func cosine(a, b []float64) float64 {
	na := floats.Norm(a, 2)
	nb := floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}

func (e *Engine) lemmaMatch(expected, submitted string) bool {
	a := e.lemmas(tokenize(expected))
	b := e.lemmas(tokenize(submitted))
	if len(a) == 0 || len(a) != len(b) {
		return false
	}
	return slices.Equal(a, b)
}

// lemmas 排序后的词根多重集合
func (e *Engine) lemmas(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if e.lemmatizer != nil {
			tok = strings.ToLower(e.lemmatizer.Lemma(tok))
		}
		out = append(out, tok)
	}
	slices.Sort(out)
	return out
}
