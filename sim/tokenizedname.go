package sim

import (
	"strconv"
	"strings"
)

// A Name is a dot-separated hierarchical name, parsed into tokens.
type Name struct {
	Tokens []NameToken
}

// A NameToken is one element of a hierarchical name, with its indices when
// the element is part of a series.
type NameToken struct {
	ElemName string
	Index    []int
}

// ParseName splits a name string into its tokens.
func ParseName(sname string) Name {
	parts := strings.Split(sname, ".")
	name := Name{Tokens: make([]NameToken, len(parts))}

	for i, part := range parts {
		name.Tokens[i] = parseToken(part)
	}

	return name
}

func parseToken(token string) NameToken {
	bracketsMustPair(token)

	segs := strings.Split(token, "[")

	indices := make([]int, len(segs)-1)
	for i := 1; i < len(segs); i++ {
		index, err := strconv.Atoi(segs[i][:len(segs[i])-1])
		if err != nil {
			panic("Name index must be integer")
		}

		indices[i-1] = index
	}

	return NameToken{ElemName: segs[0], Index: indices}
}

func bracketsMustPair(name string) {
	open := 0
	for _, c := range name {
		switch c {
		case '[':
			open++
		case ']':
			open--
			if open < 0 {
				panic("Name bracket must match")
			}
		}
	}

	if open != 0 {
		panic("Name bracket must match")
	}
}

// NameMustBeValid panics if the name does not follow the naming rules:
//  1. Names are hierarchical, "A.B.C"; a trailing dot is not allowed.
//  2. Elements must not be empty, so "A..B" is invalid.
//  3. Elements are capitalized CamelCase, so "A.b" is invalid.
//  4. Elements of a series use square-bracket indices, "Slot[0]".
func NameMustBeValid(name string) {
	defer func() {
		if r := recover(); r != nil {
			panic("Name " + name + " is not valid: " + r.(string))
		}
	}()

	n := ParseName(name)
	for _, token := range n.Tokens {
		tokenMustBeValid(token)
	}
}

func tokenMustBeValid(token NameToken) {
	if token.ElemName == "" {
		panic("Name element must not be empty")
	}

	for _, c := range []string{"_", "\"", "'", "-"} {
		if strings.Contains(token.ElemName, c) {
			panic("Name element must not contain " + c)
		}
	}

	if token.ElemName[0] < 'A' || token.ElemName[0] > 'Z' {
		panic("Name element must start with a capital letter")
	}
}

// BuildName joins a parent name and an element name.
func BuildName(parentName, elementName string) string {
	if parentName == "" {
		return elementName
	}

	return parentName + "." + elementName
}

// BuildNameWithIndex joins a parent name and an indexed element name.
func BuildNameWithIndex(parentName, elementName string, index int) string {
	return BuildName(parentName, elementName+"["+strconv.Itoa(index)+"]")
}
