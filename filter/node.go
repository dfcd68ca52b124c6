// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package filter

import (
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/zeebo/blake3"
)

type Kind string

const (
	KindCond Kind = "cond"
	KindAnd  Kind = "and"
	KindOr   Kind = "or"
)

// Node is a compiled filter. Cond nodes test whether the ballot has any
// attribute Field whose value is in Values. And/Or nodes combine Left and
// Right.
type Node struct {
	Kind   Kind
	Field  string
	Values []string
	Left   *Node
	Right  *Node
}

// MarshalJSON renders the canonical form: {"field":{"$in":[...]}},
// {"$and":[l,r]} or {"$or":[l,r]}. Map keys are emitted sorted.
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.tree())
}

func (n *Node) tree() map[string]any {
	switch n.Kind {
	case KindAnd:
		return map[string]any{"$and": []any{n.Left.tree(), n.Right.tree()}}
	case KindOr:
		return map[string]any{"$or": []any{n.Left.tree(), n.Right.tree()}}
	}
	values := n.Values
	if values == nil {
		values = []string{}
	}
	return map[string]any{n.Field: map[string]any{"$in": values}}
}

// Equal reports whether two trees have the same shape and conditions.
func (n *Node) Equal(o *Node) bool {
	if n == nil || o == nil {
		return n == o
	}
	if n.Kind != o.Kind || n.Field != o.Field || len(n.Values) != len(o.Values) {
		return false
	}
	for i := range n.Values {
		if n.Values[i] != o.Values[i] {
			return false
		}
	}
	return n.Left.Equal(o.Left) && n.Right.Equal(o.Right)
}

// Key identifies a compiled filter in cache rows and lock names.
type Key struct {
	Text   string
	Digest string
}

// NoneKey is the key of the match-all filter.
const NoneKey = "none"

// KeyOf returns the cache key of n. Trees that are equal after value
// sorting share a key; different nestings of the same logic do not.
func KeyOf(n *Node) Key {
	text := NoneKey
	if n != nil {
		b, err := json.Marshal(n)
		if err != nil {
			// only strings and slices reach the encoder
			panic(err)
		}
		text = string(b)
	}
	sum := blake3.Sum256([]byte(text))
	return Key{Text: text, Digest: hex.EncodeToString(sum[:])}
}

// Args accumulates positional SQL arguments.
type Args struct {
	Values []any
}

// Add appends v and returns its $N placeholder.
func (a *Args) Add(v any) string {
	a.Values = append(a.Values, v)
	return "$" + strconv.Itoa(len(a.Values))
}

// SQL renders n as a predicate over the vote table. Placeholders are
// numbered in order of appearance, each used once.
func (n *Node) SQL(args *Args) string {
	switch n.Kind {
	case KindAnd:
		return "(" + n.Left.SQL(args) + " AND " + n.Right.SQL(args) + ")"
	case KindOr:
		return "(" + n.Left.SQL(args) + " OR " + n.Right.SQL(args) + ")"
	}
	var sb strings.Builder
	sb.WriteString("EXISTS (SELECT 1 FROM vote_attr a WHERE a.vote_id = vote.id AND a.field = ")
	sb.WriteString(args.Add(n.Field))
	sb.WriteString(" AND a.value IN (")
	for i, v := range n.Values {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(args.Add(v))
	}
	sb.WriteString("))")
	return sb.String()
}

func (n *Node) String() string {
	if n == nil {
		return NoneKey
	}
	return KeyOf(n).Text
}
