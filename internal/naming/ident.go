// Package naming converts Move identifiers into Go and SQL identifiers.
package naming

import (
	"strings"
	"unicode"
)

// Identifiers declared by the generated package itself. TypeName never
// returns them.
const (
	// CursorName is the resumption cursor record shared with downstream
	// event pollers.
	CursorName = "Cursor"
	// RegistryName is the event type registry.
	RegistryName = "EventTypes"
)

// KeyColumn is the surrogate primary key column of every generated table.
const KeyColumn = "db_id"

// reservedSuffix is appended to synthesized names that collide with a
// reserved identifier.
const reservedSuffix = "Type"

var reserved = map[string]bool{
	CursorName:   true,
	RegistryName: true,
}

// initialisms are rendered upper-case in Go identifiers.
var initialisms = map[string]bool{
	"id": true, "uid": true, "url": true, "uri": true, "api": true,
	"nft": true, "json": true, "sql": true, "http": true, "ip": true,
}

// IsReserved reports whether name is reserved for generated support types.
func IsReserved(name string) bool {
	return reserved[name]
}

// TypeName synthesizes the Go type name of module::name: the module prefix
// followed by the name, so shop::ItemSold is ShopItemSold and
// shop::ShopItem is ShopShopItem. A struct named after its module keeps the
// bare name: coin::Coin is Coin.
func TypeName(module, name string) string {
	prefix := Pascal(module)
	base := Pascal(name)

	out := prefix + base
	if base == prefix {
		out = base
	}

	if IsReserved(out) {
		out += reservedSuffix
	}

	return out
}

// Pascal converts snake_case, kebab-case or camelCase to PascalCase while
// preserving existing inner capitals: "item_sold" -> "ItemSold",
// "XMLParser" -> "XMLParser".
func Pascal(s string) string {
	var sb strings.Builder

	for _, tok := range tokenize(s) {
		sb.WriteString(upperFirst(tok))
	}

	return sb.String()
}

// FieldName converts a Move field name to an exported Go field name with Go
// initialisms: "item_id" -> "ItemID", "url" -> "URL".
func FieldName(s string) string {
	var sb strings.Builder

	for _, tok := range tokenize(s) {
		if initialisms[strings.ToLower(tok)] {
			sb.WriteString(strings.ToUpper(tok))

			continue
		}

		sb.WriteString(upperFirst(tok))
	}

	out := sb.String()
	if out == "" {
		return "Field"
	}

	if !unicode.IsLetter([]rune(out)[0]) {
		out = "F" + out
	}

	return out
}

// Snake converts an identifier to lower snake_case: "ItemSold" -> "item_sold",
// "ShopNFTMinted" -> "shop_nft_minted".
func Snake(s string) string {
	tokens := tokenize(s)
	for i, t := range tokens {
		tokens[i] = strings.ToLower(t)
	}

	return strings.Join(tokens, "_")
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}

	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])

	return string(r)
}

// tokenize splits an identifier on separators and case transitions.
// Examples:
//   - "OrderID" -> ["Order", "ID"]
//   - "item_sold" -> ["item", "sold"]
//   - "XMLParser" -> ["XML", "Parser"]
//   - "getHTTPResponse" -> ["get", "HTTP", "Response"]
func tokenize(s string) []string {
	if s == "" {
		return nil
	}

	var tokens []string

	var current strings.Builder

	runes := []rune(s)
	for i := range runes {
		r := runes[i]

		if isSeparator(r) {
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}

			continue
		}

		if i > 0 && startsToken(runes, i) && current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}

		current.WriteRune(r)
	}

	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}

	return tokens
}

func isSeparator(r rune) bool {
	return r == '_' || r == '-' || r == ' ' || r == ':' || r == '.'
}

// startsToken determines if a new token should start at position i.
func startsToken(runes []rune, i int) bool {
	r := runes[i]
	prev := runes[i-1]

	// "orderID" -> split before 'I'
	if unicode.IsUpper(r) && !unicode.IsUpper(prev) && !isSeparator(prev) {
		return true
	}

	// "XMLParser" -> split before 'P'
	hasNextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])

	return unicode.IsUpper(r) && unicode.IsUpper(prev) && hasNextLower
}
