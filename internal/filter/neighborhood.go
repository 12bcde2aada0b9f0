package filter

import "strings"

// Neighborhood は名前付きの地区フィルタと、その地区に対応する
// 位置文字列キーワードの静的リストを表す。
// イベントのlocationは自由記述のため、キーワード部分一致で地区を判定する。
type Neighborhood struct {
	Name     string
	Keywords []string // すべて小文字。location（小文字化）への部分一致で判定する
}

// neighborhoods は地区フィルタの閉じた対応表。
var neighborhoods = []Neighborhood{
	{Name: "Fishtown", Keywords: []string{"fishtown", "frankford ave"}},
	{Name: "Northern Liberties", Keywords: []string{"northern liberties", "no libs", "n 2nd st"}},
	{Name: "Old City", Keywords: []string{"old city", "market st", "2nd street"}},
	{Name: "Center City", Keywords: []string{"center city", "rittenhouse", "broad st", "city hall"}},
	{Name: "South Philly", Keywords: []string{"south philly", "south philadelphia", "passyunk", "italian market"}},
	{Name: "University City", Keywords: []string{"university city", "west philadelphia", "penn campus", "drexel"}},
	{Name: "Fairmount", Keywords: []string{"fairmount", "art museum", "kelly drive"}},
	{Name: "Manayunk", Keywords: []string{"manayunk", "main st"}},
}

// Neighborhoods は地区フィルタの一覧を返す。
func Neighborhoods() []Neighborhood {
	out := make([]Neighborhood, len(neighborhoods))
	copy(out, neighborhoods)
	return out
}

// LookupNeighborhood は地区名から対応表エントリを検証付きで引く。
// 未知の地区名は第2戻り値がfalseになる。呼び出し元はこれを
// 「どのイベントにもマッチしない」として扱う（暗黙のデフォルトはない）。
func LookupNeighborhood(name string) (Neighborhood, bool) {
	for _, n := range neighborhoods {
		if n.Name == name {
			return n, true
		}
	}
	return Neighborhood{}, false
}

// matchesNeighborhood はイベントのlocationが地区のキーワードの
// いずれかを含むかを判定する。
func (n Neighborhood) matches(location string) bool {
	loc := strings.ToLower(location)
	for _, kw := range n.Keywords {
		if strings.Contains(loc, kw) {
			return true
		}
	}
	return false
}
