package analytics

import (
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/felixgeelhaar/concept-analytics/domain/concept"
)

// DefaultVectorDims is the width of hashed trigram vectors.
const DefaultVectorDims = 256

// vector is an L2 normalized feature vector.
type vector []float64

// trigrams returns the character trigrams of each word of s, padded with a
// space on both sides.
func trigrams(s string) []string {
	var out []string
	for _, w := range words(s) {
		r := []rune(" " + w + " ")
		if len(r) < 3 {
			continue
		}
		for i := 0; i+3 <= len(r); i++ {
			out = append(out, string(r[i:i+3]))
		}
	}
	return out
}

// words lowercases s and splits it on anything that is not a letter or digit.
func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func tokenSet(parts ...string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, p := range parts {
		for _, w := range words(p) {
			set[w] = struct{}{}
		}
	}
	return set
}

// embed hashes the trigrams of text into dims buckets.
func embed(text string, dims int) vector {
	v := make(vector, dims)
	for _, g := range trigrams(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(g))
		v[h.Sum32()%uint32(dims)]++ // #nosec G115 -- dims is positive
	}
	return v.normalized()
}

func (v vector) normalized() vector {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return v
	}
	n := math.Sqrt(sum)
	for i := range v {
		v[i] /= n
	}
	return v
}

// cosine of two vectors of equal width. Zero vectors have similarity 0.
func cosine(a, b vector) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return clamp01(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(a)+len(b)-inter)
}

// conceptVector embeds the name, tags and description of c. The name is
// repeated so it dominates the description.
func conceptVector(c concept.Concept, dims int) vector {
	text := c.Name + " " + c.Name + " " + strings.Join(c.Tags, " ") + " " + c.Description
	return embed(text, dims)
}

func centroid(vs []vector, dims int) vector {
	c := make(vector, dims)
	for _, v := range vs {
		for i, x := range v {
			c[i] += x
		}
	}
	return c.normalized()
}

func clamp01(x float64) float64 {
	switch {
	case x < 0 || math.IsNaN(x):
		return 0
	case x > 1:
		return 1
	}
	return x
}

// round4 keeps reported scores stable across platforms.
func round4(x float64) float64 {
	return math.Round(x*1e4) / 1e4
}
