package dto

import "xrent/internal/domain/tokens"

type Token struct {
	Symbol  string `json:"symbol"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

type TokenList struct {
	Items []Token `json:"items"`
}

func MapTokens(descriptors []tokens.Descriptor) TokenList {
	items := make([]Token, 0, len(descriptors))
	for _, d := range descriptors {
		items = append(items, Token{Symbol: d.Symbol, Name: d.Name, Address: d.Address})
	}
	return TokenList{Items: items}
}
