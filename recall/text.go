package recall

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// tokenize 把 soup 文本切分为词元：小写化、按非字母数字切分、
// 保留长度 >= 2 的词并去除英文停用词。
// 与常见 TF-IDF 向量化器的 `\w\w+` 词元规则对齐。
func tokenize(text string) []string {
	text = strings.ToLower(text)
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		word := current.String()
		current.Reset()
		if len(word) >= 2 && !stopwords[word] {
			tokens = append(tokens, word)
		}
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()

	return tokens
}

// tfidfVectors 把每篇文档的词元转成 L2 归一化的 TF-IDF 稀疏向量。
// TF 为原始词频；IDF 采用平滑形式 ln((1+N)/(1+df)) + 1；
// 归一化后向量的线性核（点积）即余弦相似度。
// 返回向量列表与词表大小（词表：全体出现过的词，按字典序编号）。
func tfidfVectors(docs [][]string) ([]map[int]float64, int) {
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]bool, len(doc))
		for _, tok := range doc {
			if !seen[tok] {
				seen[tok] = true
				df[tok]++
			}
		}
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	vocab := make(map[string]int, len(terms))
	for i, term := range terms {
		vocab[term] = i
	}

	n := float64(len(docs))
	idf := make([]float64, len(terms))
	for term, col := range vocab {
		idf[col] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	vectors := make([]map[int]float64, len(docs))
	for i, doc := range docs {
		tf := make(map[int]float64)
		for _, tok := range doc {
			tf[vocab[tok]]++
		}
		var norm float64
		for col, count := range tf {
			w := count * idf[col]
			tf[col] = w
			norm += w * w
		}
		// 空文档保持零向量，与任何物品的相似度为 0
		if norm > 0 {
			norm = math.Sqrt(norm)
			for col := range tf {
				tf[col] /= norm
			}
		}
		vectors[i] = tf
	}
	return vectors, len(terms)
}

// sparseDot 计算两个稀疏向量的点积，遍历较小的一侧。
func sparseDot(a, b map[int]float64) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	var sum float64
	for col, va := range a {
		if vb, ok := b[col]; ok {
			sum += va * vb
		}
	}
	return sum
}

// stopwords 是英文停用词表（与向量化阶段的 english 停用词语义一致）。
var stopwords = map[string]bool{
	"the": true, "be": true, "to": true, "of": true, "and": true,
	"in": true, "that": true, "have": true, "it": true, "for": true,
	"not": true, "on": true, "with": true, "he": true, "as": true,
	"you": true, "do": true, "at": true, "this": true, "but": true,
	"his": true, "by": true, "from": true, "they": true, "we": true,
	"say": true, "her": true, "she": true, "or": true, "an": true,
	"will": true, "my": true, "one": true, "all": true, "would": true,
	"there": true, "their": true, "what": true, "so": true, "up": true,
	"out": true, "if": true, "about": true, "who": true, "get": true,
	"which": true, "go": true, "me": true, "when": true, "make": true,
	"can": true, "like": true, "no": true, "just": true, "him": true,
	"know": true, "take": true, "come": true, "could": true, "than": true,
	"look": true, "use": true, "into": true, "some": true, "them": true,
	"see": true, "other": true, "then": true, "now": true, "only": true,
	"its": true, "also": true, "after": true, "way": true, "our": true,
	"how": true, "more": true, "been": true, "was": true, "were": true,
	"are": true, "is": true, "am": true, "has": true, "had": true,
	"did": true, "does": true, "let": true, "may": true, "should": true,
	"must": true, "shall": true, "very": true, "much": true, "too": true,
}
