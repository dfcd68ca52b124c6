// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package filter compiles the ballot query language.

# Grammar

	root      := query EOF
	query     := and_query ("OR" query)?
	and_query := primary ("AND" and_query)?
	primary   := "(" query ")" | condition
	condition := ident ":" "[" value ("," value)* "]" | ident "=" value
	value     := integer | quoted_string

AND binds tighter than OR and both group to the right, so
"a=1 AND b=2 AND c=3" is And(a, And(b, c)).

# Identifiers

  - q<digits>: the selected options of a questionnaire question (q11011 → q11011.opt)
  - chars, musics, cps: the item names of that section (chars → chars.name)
  - anything else is used as-is (chars_first, cps_first, ...)

Both condition forms test containment: "x = v" is the same node as
"x:[v]", so equality against a list field means "the list contains v".

# Cache Keys

KeyOf serializes a tree to canonical JSON with sorted map keys and sorted
condition values:

	q1=2 OR chars:["b","a"]
	→ {"$or":[{"q1.opt":{"$in":["2"]}},{"chars.name":{"$in":["a","b"]}}]}

The BLAKE3 digest of that text is stored in cache rows and lock names. A
blank query compiles to nil and has the key "none". Queries that nest the
same logic differently get different keys.

# SQL

Node.SQL renders an EXISTS predicate against vote_attr with $N placeholders;
use db.Rebind for drivers that take "?".
*/
package filter
