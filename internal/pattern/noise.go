package pattern

import "regexp"

// noisePatterns match requisites and signature lines that surround the item
// table of a TTN: tax and bank identifiers, addresses, driver and licence data.
var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*ИНН\s+\d+`),
	regexp.MustCompile(`(?i)^\s*КПП\s+\d+`),
	regexp.MustCompile(`(?i)к/с\s+\d{20}`),
	regexp.MustCompile(`(?i)р/с\s+\d{20}`),
	regexp.MustCompile(`(?i)^\d{6},\s*г\.`),
	regexp.MustCompile(`(?i)^\d{6}[,\s]+[А-Яа-я]`),
	regexp.MustCompile(`(?i)(?:Водитель|Лицензи|Регистрационн|Паспорт)`),
	regexp.MustCompile(`(?i)Срок\s+доставки`),
	regexp.MustCompile(`(?i)БИК\s+\d{9}`),
	regexp.MustCompile(`(?i)ОГРН\s+\d{13}`),
	regexp.MustCompile(`(?i)Адрес[:\s]+\d{6}`),
	regexp.MustCompile(`(?i)^[А-Яа-я]+\s+[А-Я]\.[А-Я]\.`),
	regexp.MustCompile(`(?i)Организация\s+ИНН`),
	regexp.MustCompile(`(?i)^\s*«[^»]+»\s*$`),
}

// IsNoise reports whether line is document metadata rather than item content.
func IsNoise(line string) bool {
	for _, re := range noisePatterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}
