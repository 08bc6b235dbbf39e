package ai

import (
	"regexp"
	"slices"
	"strings"
	"unicode"

	"github.com/fiercfly/proteinHunt/internal/models"
	"github.com/fiercfly/proteinHunt/internal/util"
)

const heuristicTitleLength = 100

var (
	urlRegex      = regexp.MustCompile(`https?://[^\s<>"'()\[\]{}]+`)
	priceRegex    = regexp.MustCompile(`(?i)(?:₹|\brs\.?|\binr)\s*([\d,]+(?:\.\d+)?)`)
	mrpRegex      = regexp.MustCompile(`(?i)\bm\.?r\.?p\.?\s*:?\s*(?:₹|rs\.?|inr)?\s*([\d,]+(?:\.\d+)?)`)
	percentRegex  = regexp.MustCompile(`(?i)(\d{1,3}(?:\.\d+)?)\s*%\s*(?:off|discount)`)
	proteinRegex  = regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s?g(?:m)?\s+protein\b`)
	weightRegex   = regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s?(?:kg|gm|g|lbs?)\b`)
	imageExtRegex = regexp.MustCompile(`(?i)\.(?:jpe?g|png|webp)$`)
)

// storeDomains maps retailer domains to display names.
var storeDomains = map[string]string{
	"amazon.in":       "Amazon",
	"amazon.com":      "Amazon",
	"amzn.to":         "Amazon",
	"amzn.in":         "Amazon",
	"flipkart.com":    "Flipkart",
	"fkrt.it":         "Flipkart",
	"healthkart.com":  "Healthkart",
	"myprotein.co.in": "Myprotein",
	"myprotein.com":   "Myprotein",
	"gnc.co.in":       "GNC India",
	"nutrabay.com":    "Nutrabay",
	"muscleblaze.com": "MuscleBlaze",
	"1mg.com":         "Tata 1mg",
	"bigbasket.com":   "BigBasket",
}

var storeKeywords = []struct {
	keyword string
	name    string
}{
	{"amazon", "Amazon"},
	{"flipkart", "Flipkart"},
	{"healthkart", "Healthkart"},
	{"nutrabay", "Nutrabay"},
	{"myprotein", "Myprotein"},
	{"tata 1mg", "Tata 1mg"},
}

var knownBrands = []string{
	"MuscleBlaze", "Optimum Nutrition", "MyProtein", "GNC", "Dymatize", "Nakpro",
	"BigMuscles", "AS-IT-IS", "Fast&Up", "MuscleTech", "Avvatar", "Wellcore",
}

// fallbackExtract is the heuristic path used when the model is unavailable
// or its output is unusable. Output is index-aligned with msgs.
func fallbackExtract(msgs []models.RawMessage) []rawDeal {
	out := make([]rawDeal, len(msgs))
	for i, m := range msgs {
		out[i] = heuristicDeal(m.RawText)
	}
	return out
}

func heuristicDeal(text string) rawDeal {
	r := rawDeal{PostType: string(models.PostTypeDeal)}

	r.Title = heuristicTitle(text)
	if r.Title == "" {
		r.skip = true
		return r
	}

	r.OriginalPrice, r.Price = heuristicPrices(text)
	if m := percentRegex.FindStringSubmatch(text); m != nil {
		if f, ok := util.ParseAmount(m[1]); ok && f <= 100 {
			r.Discount = &f
		}
	}

	for _, u := range findURLs(text) {
		if imageExtRegex.MatchString(pathOf(u)) {
			if r.Image == "" {
				r.Image = u
			}
			continue
		}
		if r.Link == "" {
			r.Link = u
		}
	}

	r.Store = heuristicStore(r.Link, text)
	r.Brand = heuristicBrand(text)
	r.KeyFeatures = heuristicFeatures(text)
	return r
}

// heuristicTitle returns the first line that still has words once URLs and
// decorative symbols are removed.
func heuristicTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = urlRegex.ReplaceAllString(line, " ")
		line = strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || strings.ContainsRune(".,&+-/()%:'₹|!@", r) {
				return r
			}
			return -1
		}, line)
		line = strings.Join(strings.Fields(line), " ")
		line = strings.Trim(line, " -|:")
		if countLetters(line) < 3 {
			continue
		}
		return strings.TrimSpace(util.Clip(line, heuristicTitleLength))
	}
	return ""
}

func countLetters(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}

// heuristicPrices returns (originalPrice, price). An explicit MRP wins as
// the original; otherwise the highest and lowest distinct amounts are used.
func heuristicPrices(text string) (*float64, *float64) {
	var mrp *float64
	if m := mrpRegex.FindStringSubmatch(text); m != nil {
		if f, ok := util.ParseAmount(m[1]); ok {
			mrp = &f
		}
	}

	var amounts []float64
	for _, m := range priceRegex.FindAllStringSubmatch(text, -1) {
		f, ok := util.ParseAmount(m[1])
		if !ok || (mrp != nil && f == *mrp) || slices.Contains(amounts, f) {
			continue
		}
		amounts = append(amounts, f)
	}
	if len(amounts) == 0 {
		return mrp, nil
	}

	lowest := slices.Min(amounts)
	if mrp != nil {
		return mrp, &lowest
	}
	if len(amounts) == 1 {
		return nil, &lowest
	}
	highest := slices.Max(amounts)
	return &highest, &lowest
}

// findURLs returns URLs exactly as they appear in text, minus trailing
// sentence punctuation.
func findURLs(text string) []string {
	var out []string
	for _, u := range urlRegex.FindAllString(text, -1) {
		u = strings.TrimRight(u, ".,;:!?*")
		if u != "" && !slices.Contains(out, u) {
			out = append(out, u)
		}
	}
	return out
}

func pathOf(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		return u[:i]
	}
	return u
}

func heuristicStore(link, text string) string {
	if name, ok := storeDomains[util.GetDomain(link)]; ok {
		return name
	}
	lower := strings.ToLower(text)
	for _, s := range storeKeywords {
		if strings.Contains(lower, s.keyword) {
			return s.name
		}
	}
	return ""
}

func heuristicBrand(text string) string {
	lower := strings.ToLower(text)
	for _, b := range knownBrands {
		if strings.Contains(lower, strings.ToLower(b)) {
			return b
		}
	}
	return ""
}

func heuristicFeatures(text string) []string {
	text = urlRegex.ReplaceAllString(text, " ")
	var out []string
	add := func(f string) {
		f = strings.TrimSpace(f)
		for _, existing := range out {
			if strings.Contains(existing, f) {
				return
			}
		}
		if len(out) < models.MaxKeyFeatures {
			out = append(out, f)
		}
	}
	for _, m := range proteinRegex.FindAllString(text, -1) {
		add(m)
	}
	for _, m := range weightRegex.FindAllString(text, -1) {
		add(m)
	}
	return out
}
