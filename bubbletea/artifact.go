package bubbletea

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// maxCardWidth keeps cards readable on wide terminals.
const maxCardWidth = 64

// record is one loosely-typed object from block data. Field names vary
// between backend versions, so lookups accept several candidate keys.
type record map[string]any

// records extracts the list of objects from data. data may be a list, an
// object wrapping the list under one of keys, or a single object.
func records(data any, keys ...string) []record {
	switch v := data.(type) {
	case []any:
		out := make([]record, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, record(m))
			}
		}
		return out
	case map[string]any:
		for _, k := range keys {
			if list, ok := v[k].([]any); ok {
				return records(list)
			}
		}
		return []record{record(v)}
	default:
		return nil
	}
}

func (r record) str(keys ...string) string {
	for _, k := range keys {
		switch v := r[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return formatNumber(v)
		case bool:
			return strconv.FormatBool(v)
		}
	}
	return ""
}

func (r record) num(keys ...string) (float64, bool) {
	for _, k := range keys {
		switch v := r[k].(type) {
		case float64:
			return v, true
		case string:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

func (r record) any(keys ...string) any {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func (r record) strings(keys ...string) []string {
	for _, k := range keys {
		list, ok := r[k].([]any)
		if !ok {
			continue
		}
		out := make([]string, 0, len(list))
		for _, item := range list {
			switch v := item.(type) {
			case string:
				out = append(out, v)
			case float64:
				out = append(out, formatNumber(v))
			}
		}
		return out
	}
	return nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"INR": "₹",
}

func formatPrice(v any, currency string) string {
	var amount string
	switch p := v.(type) {
	case float64:
		amount = formatNumber(p)
		if p != math.Trunc(p) {
			amount = strconv.FormatFloat(p, 'f', 2, 64)
		}
	case string:
		if p == "" {
			return ""
		}
		if _, err := strconv.ParseFloat(p, 64); err != nil {
			return p // already formatted, e.g. "$120"
		}
		amount = p
	default:
		return ""
	}
	if sym, ok := currencySymbols[strings.ToUpper(currency)]; ok {
		return sym + amount
	}
	if currency != "" {
		return amount + " " + currency
	}
	return amount
}

func formatRating(r record) string {
	rating, ok := r.num("rating", "stars", "score")
	if !ok {
		return ""
	}
	s := "★ " + formatNumber(rating)
	if n, ok := r.num("review_count", "reviews_count", "num_reviews"); ok {
		s += fmt.Sprintf(" (%s reviews)", formatNumber(n))
	}
	return s
}

// truncate shortens s to at most width cells without splitting grapheme
// clusters.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if uniseg.StringWidth(s) <= width {
		return s
	}
	var b strings.Builder
	w := 0
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		if w+g.Width() > width-1 {
			break
		}
		b.WriteString(g.Str())
		w += g.Width()
	}
	return b.String() + "…"
}

// cardSpec selects the record fields shown on a card.
type cardSpec struct {
	title    []string
	subtitle []string
	price    []string
	unit     string
}

var (
	productCard = cardSpec{
		title:    []string{"name", "title", "product_name"},
		subtitle: []string{"brand", "merchant", "store", "description"},
		price:    []string{"price", "sale_price"},
	}
	hotelCard = cardSpec{
		title:    []string{"name", "title", "hotel_name"},
		subtitle: []string{"location", "address", "neighborhood", "city"},
		price:    []string{"price_per_night", "nightly_price", "price"},
		unit:     " / night",
	}
)

func renderCards(items []record, card cardSpec, width int, st Styles) (string, bool) {
	if len(items) == 0 {
		return "", false
	}
	cardWidth := min(width, maxCardWidth)
	inner := max(cardWidth-4, 8) // border and padding
	cards := make([]string, 0, len(items))
	for _, item := range items {
		var price string
		if p := formatPrice(item.any(card.price...), item.str("currency")); p != "" {
			price = st.Success.Render(p + card.unit)
		}
		body := joinLines(
			st.Title.Render(truncate(item.str(card.title...), inner)),
			st.Muted.Render(truncate(item.str(card.subtitle...), inner)),
			strings.TrimSpace(price+"  "+formatRating(item)),
			st.Accent.Render(truncate(item.str("url", "link", "booking_url"), inner)),
		)
		cards = append(cards, st.Card.Width(inner+2).Render(body))
	}
	return lipgloss.JoinVertical(lipgloss.Left, cards...), true
}

func formatStops(v any) string {
	n, ok := v.(float64)
	if !ok {
		return ""
	}
	switch n {
	case 0:
		return "nonstop"
	case 1:
		return "1 stop"
	default:
		return formatNumber(n) + " stops"
	}
}

func renderFlights(items []record, width int, st Styles) (string, bool) {
	if len(items) == 0 {
		return "", false
	}
	cardWidth := min(width, maxCardWidth+16)
	inner := max(cardWidth-4, 8)
	lines := make([]string, 0, len(items)*2)
	for _, f := range items {
		carrier := strings.TrimSpace(f.str("airline", "carrier") + " " + f.str("flight_number", "number"))
		route := fmt.Sprintf("%s %s → %s %s",
			f.str("origin", "from", "departure_airport"), f.str("departure_time", "departure"),
			f.str("destination", "to", "arrival_airport"), f.str("arrival_time", "arrival"))
		details := slices.DeleteFunc([]string{f.str("duration"), formatStops(f.any("stops"))},
			func(s string) bool { return s == "" })
		if p := formatPrice(f.any("price"), f.str("currency")); p != "" {
			details = append(details, st.Success.Render(p))
		}
		lines = append(lines,
			st.Title.Render(truncate(carrier, inner)),
			strings.Join(append([]string{truncate(strings.TrimSpace(route), inner)}, details...), "  "),
		)
	}
	return st.Card.Width(inner + 2).Render(joinLines(lines...)), true
}

// renderComparison draws a table. Data may be {columns|headers, rows} or a
// list of objects whose keys become columns.
func renderComparison(data any, width int, st Styles) (string, bool) {
	headers, rows := comparisonRows(data)
	if len(headers) == 0 || len(rows) == 0 {
		return "", false
	}

	const sep = " │ "
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i := range widths {
			if i < len(row) {
				widths[i] = max(widths[i], runewidth.StringWidth(row[i]))
			}
		}
	}
	// Shrink the widest column until the table fits.
	avail := width - (len(headers)-1)*runewidth.StringWidth(sep)
	for total(widths) > avail {
		i := widest(widths)
		if widths[i] <= 4 {
			break
		}
		widths[i]--
	}

	cell := func(s string, w int) string {
		return runewidth.FillRight(runewidth.Truncate(s, w, "…"), w)
	}
	line := func(cells []string, style func(string) string) string {
		parts := make([]string, len(widths))
		for i, w := range widths {
			var v string
			if i < len(cells) {
				v = cells[i]
			}
			parts[i] = style(cell(v, w))
		}
		return strings.TrimRight(strings.Join(parts, st.Border.Render(sep)), " ")
	}

	out := []string{line(headers, func(s string) string { return st.Title.Render(s) })}
	rules := make([]string, len(widths))
	for i, w := range widths {
		rules[i] = strings.Repeat("─", w)
	}
	out = append(out, st.Border.Render(strings.Join(rules, "─┼─")))
	for _, row := range rows {
		out = append(out, line(row, func(s string) string { return s }))
	}
	return strings.Join(out, "\n"), true
}

func total(widths []int) int {
	n := 0
	for _, w := range widths {
		n += w
	}
	return n
}

func widest(widths []int) int {
	best := 0
	for i, w := range widths {
		if w > widths[best] {
			best = i
		}
	}
	return best
}

func comparisonRows(data any) ([]string, [][]string) {
	if obj, ok := data.(map[string]any); ok {
		r := record(obj)
		headers := r.strings("columns", "headers")
		if rows, ok := r.any("rows").([]any); ok && len(headers) > 0 {
			out := make([][]string, 0, len(rows))
			for _, row := range rows {
				switch v := row.(type) {
				case []any:
					cells := make([]string, len(v))
					for i, c := range v {
						cells[i] = record{"v": c}.str("v")
					}
					out = append(out, cells)
				case map[string]any:
					cells := make([]string, len(headers))
					for i, h := range headers {
						cells[i] = record(v).str(h)
					}
					out = append(out, cells)
				}
			}
			return headers, out
		}
	}

	items := records(data, "items", "products", "options")
	if len(items) == 0 {
		return nil, nil
	}
	headers := columnsOf(items)
	rows := make([][]string, len(items))
	for i, item := range items {
		rows[i] = make([]string, len(headers))
		for j, h := range headers {
			rows[i][j] = item.str(h)
		}
	}
	return headers, rows
}

// columnsOf lists the scalar keys of items, name-like keys first and the
// rest sorted.
func columnsOf(items []record) []string {
	seen := map[string]bool{}
	var keys []string
	for _, item := range items {
		for k, v := range item {
			switch v.(type) {
			case string, float64, bool:
			default:
				continue
			}
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	rank := func(k string) int {
		switch k {
		case "name", "title", "product", "product_name":
			return 0
		default:
			return 1
		}
	}
	slices.SortFunc(keys, func(a, b string) int {
		if d := rank(a) - rank(b); d != 0 {
			return d
		}
		return strings.Compare(a, b)
	})
	return keys
}

// renderItinerary draws days with their activities. Data may be
// {title?, days: [...]} or a list of days.
func renderItinerary(data any, width int, st Styles) (string, bool) {
	var heading string
	if obj, ok := data.(map[string]any); ok {
		heading = record(obj).str("title", "destination", "name")
	}
	days := records(data, "days", "itinerary", "items")
	if len(days) == 0 {
		return "", false
	}
	var lines []string
	if heading != "" {
		lines = append(lines, st.Title.Render(truncate(heading, width)))
	}
	for i, d := range days {
		label := "Day " + d.str("day", "day_number")
		if label == "Day " {
			label = fmt.Sprintf("Day %d", i+1)
		}
		if title := d.str("title", "theme", "summary"); title != "" {
			label += " · " + title
		}
		if date := d.str("date"); date != "" {
			label += " (" + date + ")"
		}
		lines = append(lines, st.Accent.Render(truncate(label, width)))
		for _, a := range activities(d) {
			lines = append(lines, truncate("  "+a, width))
		}
	}
	return joinLines(lines...), true
}

func activities(day record) []string {
	list, _ := day.any("activities", "items", "plan", "schedule").([]any)
	out := make([]string, 0, len(list))
	for _, item := range list {
		switch v := item.(type) {
		case string:
			out = append(out, "• "+v)
		case map[string]any:
			a := record(v)
			text := a.str("title", "name", "activity", "description")
			if t := a.str("time", "start"); t != "" {
				text = t + "  " + text
			}
			out = append(out, "• "+text)
		}
	}
	return out
}

func renderLinks(items []record, width int, st Styles) (string, bool) {
	var lines []string
	for _, l := range items {
		url := l.str("url", "link", "href")
		if url == "" {
			continue
		}
		label := l.str("label", "title", "name", "text")
		if label == "" {
			label = url
		}
		line := "• " + label
		if m := l.str("merchant", "store", "retailer"); m != "" {
			line += " " + st.Muted.Render("("+m+")")
		}
		if p := formatPrice(l.any("price"), l.str("currency")); p != "" {
			line += "  " + st.Success.Render(p)
		}
		lines = append(lines, line, "  "+st.Accent.Render(truncate(url, width-2)))
	}
	if len(lines) == 0 {
		return "", false
	}
	return joinLines(lines...), true
}

func renderReview(items []record, width int, st Styles) (string, bool) {
	if len(items) == 0 {
		return "", false
	}
	inner := max(min(width, maxCardWidth)-4, 8)
	wrap := lipgloss.NewStyle().Width(inner)
	cards := make([]string, 0, len(items))
	for _, r := range items {
		lines := []string{
			st.Title.Render(truncate(r.str("product", "product_name", "name", "title"), inner)),
			formatRating(r),
		}
		if s := r.str("summary", "review", "text", "verdict"); s != "" {
			lines = append(lines, wrap.Render(s))
		}
		for _, p := range r.strings("pros") {
			lines = append(lines, st.Success.Render("+ ")+truncate(p, inner-2))
		}
		for _, c := range r.strings("cons") {
			lines = append(lines, st.Error.Render("- ")+truncate(c, inner-2))
		}
		cards = append(cards, st.Card.Width(inner+2).Render(joinLines(lines...)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, cards...), true
}
