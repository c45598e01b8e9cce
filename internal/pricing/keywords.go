package pricing

import (
	"regexp"
	"strings"
)

// Marker detection works on the candidate's context window. Latin-script
// markers use word-boundary regexes so "après" does not fire on "âpres";
// CJK markers and slash forms use substring checks because \b does not
// apply at those boundaries.

var (
	monthlyWordRe = regexp.MustCompile(`(?i)\b(?:per month|a month|monthly|month|mo|mes|al mes|mensual|mois|par mois|mensuel|monat|monatlich|pro monat|mensal|mese|al mese|mensile|maand|per maand|ay|aylık|ayda|miesięcznie|måned|kuukausi|bulan)\b`)
	monthlyLoose  = []string{"mês", "por mês", "miesiąc", "månad", "tháng", "в месяц", "месяц"}
	monthlySlash  = []string{"/month", "/mo", "/mes", "/mois", "/monat", "/mês", "/mese", "/maand", "/ay", "/md", "/månad", "/月"}
	monthlyCJK    = []string{"月額", "毎月", "月々", "か月", "ヶ月", "매월", "월별", "개월", "每月", "每个月", "เดือน", "ต่อเดือน"}

	afterWordRe = regexp.MustCompile(`(?i)\b(?:then|after|afterwards|thereafter|puis|ensuite|après|danach|luego|después|depois|em seguida|poi|dopo|daarna|sonra|sedan|potem)\b`)
	afterLoose  = []string{"anschließend", "ardından", "därefter", "после", "затем", "далее", "następnie"}
	afterCJK    = []string{"その後", "以降", "이후", "그 후", "之后", "之後", "หลังจากนั้น"}

	introWordRe = regexp.MustCompile(`(?i)\b(?:free|trial|intro(?:ductory)?|promo(?:tion(?:al)?)?|offer|gratis|gratuit|essai|offre|kostenlos|probe|gratuito|prueba|oferta|teste|prova|offerta|proberen|deneme|darmow\w*|first|premier(?:s)? mois|erste[rn]? monat)\b`)
	introLoose  = []string{"ücretsiz", "promoção", "bezpłatn", "бесплатн", "пробн"}
	introCJK    = []string{"無料", "体験", "初回", "무료", "체험", "免费", "免費", "试用", "試用", "ฟรี", "ทดลอง"}
)

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

// HasMonthlyMarker reports whether the text names a monthly cadence.
func HasMonthlyMarker(text string) bool {
	lower := strings.ToLower(text)
	return monthlyWordRe.MatchString(text) ||
		containsAny(lower, monthlyLoose) ||
		containsAny(lower, monthlySlash) ||
		containsAny(text, monthlyCJK)
}

// HasAfterMarker reports whether the text signals a post-promotion price
// ("then", "puis", "danach", ...).
func HasAfterMarker(text string) bool {
	return afterWordRe.MatchString(text) ||
		containsAny(strings.ToLower(text), afterLoose) ||
		containsAny(text, afterCJK)
}

// HasIntroMarker reports whether the text signals a trial or promotional
// price.
func HasIntroMarker(text string) bool {
	return introWordRe.MatchString(text) ||
		containsAny(strings.ToLower(text), introLoose) ||
		containsAny(text, introCJK)
}
