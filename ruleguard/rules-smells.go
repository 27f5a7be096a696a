package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

func smells(m dsl.Matcher) {
	// Two consecutive guard clauses returning the same value can merge.
	m.Match(`if $c1 { return $ret }; if $c2 { return $ret }`).
		Report(`two consecutive guards return the same value; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { return $ret }`)

	m.Match(`if $c1 { continue }; if $c2 { continue }`).
		Report(`two consecutive continues; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { continue }`)

	// Locks taken without a deferred unlock tend to leak on early returns.
	m.Match(`$mu.Lock(); $*_; $mu.Unlock()`).
		Where(m["mu"].Type.Is(`*sync.Mutex`)).
		Report(`prefer defer $mu.Unlock() right after locking`)

	m.Match(`errors.New(fmt.Sprintf($*args))`).
		Report(`errors.New on a formatted string; use fmt.Errorf`).
		Suggest(`fmt.Errorf($args)`)
}
