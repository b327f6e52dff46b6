package tradegate

import (
    "bytes"
    "strconv"
    "strings"

    "golang.org/x/net/html"
)

// ParsePrice extracts the last-trade price from a Tradegate order book
// page. It walks the HTML for the element with id="last" and parses its
// text as a German-formatted number ("1.234,56"). The second return is
// false when the page carries no usable price.
//
// Kept as a pure function so the fragile scraping logic is testable
// against saved pages without any network access.
func ParsePrice(page []byte) (float64, bool) {
    z := html.NewTokenizer(bytes.NewReader(page))
    depth := 0 // >0 while inside the id="last" element
    for {
        switch z.Next() {
        case html.ErrorToken:
            return 0, false
        case html.StartTagToken:
            t := z.Token()
            if depth > 0 {
                depth++
                continue
            }
            for _, a := range t.Attr {
                if a.Key == "id" && a.Val == "last" {
                    depth = 1
                    break
                }
            }
        case html.EndTagToken:
            if depth > 0 { depth-- }
        case html.TextToken:
            if depth == 0 { continue }
            if v, ok := parseGermanNumber(string(z.Text())); ok {
                return v, true
            }
        }
    }
}

func parseGermanNumber(s string) (float64, bool) {
    s = strings.TrimSpace(s)
    s = strings.TrimSuffix(s, "€")
    s = strings.TrimSpace(s)
    if s == "" || s == "-" || s == "--" { return 0, false }
    s = strings.ReplaceAll(s, ".", "")
    s = strings.ReplaceAll(s, ",", ".")
    v, err := strconv.ParseFloat(s, 64)
    if err != nil { return 0, false }
    return v, true
}
