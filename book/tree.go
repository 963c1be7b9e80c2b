package book

import "github.com/shopspring/decimal"

// Tree is a red-black tree of price levels keyed by pip price.
// One tree per book side; ordering direction is chosen by the walker.
type Tree struct {
	root     *node
	sentinel *node
	size     int
}

type color bool

const (
	red   color = false
	black color = true
)

type node struct {
	key    int64
	level  *Level
	color  color
	left   *node
	right  *node
	parent *node
}

func NewTree() *Tree {
	sentinel := &node{color: black}
	return &Tree{root: sentinel, sentinel: sentinel}
}

// Len returns the number of active price levels.
func (t *Tree) Len() int {
	return t.size
}

// GetOrCreate returns the level at price, creating it if absent.
func (t *Tree) GetOrCreate(key int64, price decimal.Decimal) *Level {
	n := t.find(key)
	if n != t.sentinel {
		return n.level
	}
	lvl := &Level{Price: price, Key: key}
	t.insert(key, lvl)
	return lvl
}

// Find returns the level at price or nil.
func (t *Tree) Find(key int64) *Level {
	n := t.find(key)
	if n == t.sentinel {
		return nil
	}
	return n.level
}

// Delete removes the level at key, if present.
func (t *Tree) Delete(key int64) {
	n := t.find(key)
	if n == t.sentinel {
		return
	}
	t.delete(n)
	t.size--
}

// Min returns the lowest-priced level or nil.
func (t *Tree) Min() *Level {
	n := t.min(t.root)
	if n == t.sentinel {
		return nil
	}
	return n.level
}

// Max returns the highest-priced level or nil.
func (t *Tree) Max() *Level {
	n := t.max(t.root)
	if n == t.sentinel {
		return nil
	}
	return n.level
}

// WalkAsc visits levels in ascending price order until fn returns false.
func (t *Tree) WalkAsc(fn func(*Level) bool) {
	for n := t.min(t.root); n != t.sentinel; n = t.next(n) {
		if !fn(n.level) {
			return
		}
	}
}

// WalkDesc visits levels in descending price order until fn returns false.
func (t *Tree) WalkDesc(fn func(*Level) bool) {
	for n := t.max(t.root); n != t.sentinel; n = t.prev(n) {
		if !fn(n.level) {
			return
		}
	}
}

// ---- internal helpers ----

func (t *Tree) find(key int64) *node {
	n := t.root
	for n != t.sentinel {
		if key < n.key {
			n = n.left
		} else if key > n.key {
			n = n.right
		} else {
			return n
		}
	}
	return t.sentinel
}

func (t *Tree) min(n *node) *node {
	for n != t.sentinel && n.left != t.sentinel {
		n = n.left
	}
	return n
}

func (t *Tree) max(n *node) *node {
	for n != t.sentinel && n.right != t.sentinel {
		n = n.right
	}
	return n
}

func (t *Tree) next(n *node) *node {
	if n.right != t.sentinel {
		return t.min(n.right)
	}
	p := n.parent
	for p != t.sentinel && n == p.right {
		n = p
		p = p.parent
	}
	return p
}

func (t *Tree) prev(n *node) *node {
	if n.left != t.sentinel {
		return t.max(n.left)
	}
	p := n.parent
	for p != t.sentinel && n == p.left {
		n = p
		p = p.parent
	}
	return p
}

func (t *Tree) rotateLeft(x *node) {
	y := x.right
	x.right = y.left
	if y.left != t.sentinel {
		y.left.parent = x
	}
	y.parent = x.parent
	if x.parent == t.sentinel {
		t.root = y
	} else if x == x.parent.left {
		x.parent.left = y
	} else {
		x.parent.right = y
	}
	y.left = x
	x.parent = y
}

func (t *Tree) rotateRight(x *node) {
	y := x.left
	x.left = y.right
	if y.right != t.sentinel {
		y.right.parent = x
	}
	y.parent = x.parent
	if x.parent == t.sentinel {
		t.root = y
	} else if x == x.parent.right {
		x.parent.right = y
	} else {
		x.parent.left = y
	}
	y.right = x
	x.parent = y
}

func (t *Tree) insert(key int64, lvl *Level) {
	z := &node{key: key, level: lvl, color: red, left: t.sentinel, right: t.sentinel, parent: t.sentinel}
	y := t.sentinel
	x := t.root
	for x != t.sentinel {
		y = x
		if z.key < x.key {
			x = x.left
		} else {
			x = x.right
		}
	}
	z.parent = y
	if y == t.sentinel {
		t.root = z
	} else if z.key < y.key {
		y.left = z
	} else {
		y.right = z
	}
	t.size++
	t.insertFixup(z)
}

func (t *Tree) insertFixup(z *node) {
	for z.parent.color == red {
		if z.parent == z.parent.parent.left {
			u := z.parent.parent.right
			if u.color == red {
				z.parent.color = black
				u.color = black
				z.parent.parent.color = red
				z = z.parent.parent
			} else {
				if z == z.parent.right {
					z = z.parent
					t.rotateLeft(z)
				}
				z.parent.color = black
				z.parent.parent.color = red
				t.rotateRight(z.parent.parent)
			}
		} else {
			u := z.parent.parent.left
			if u.color == red {
				z.parent.color = black
				u.color = black
				z.parent.parent.color = red
				z = z.parent.parent
			} else {
				if z == z.parent.left {
					z = z.parent
					t.rotateRight(z)
				}
				z.parent.color = black
				z.parent.parent.color = red
				t.rotateLeft(z.parent.parent)
			}
		}
	}
	t.root.color = black
}

func (t *Tree) transplant(u, v *node) {
	if u.parent == t.sentinel {
		t.root = v
	} else if u == u.parent.left {
		u.parent.left = v
	} else {
		u.parent.right = v
	}
	v.parent = u.parent
}

func (t *Tree) delete(z *node) {
	y := z
	yOrig := y.color
	var x *node
	if z.left == t.sentinel {
		x = z.right
		t.transplant(z, z.right)
	} else if z.right == t.sentinel {
		x = z.left
		t.transplant(z, z.left)
	} else {
		y = t.min(z.right)
		yOrig = y.color
		x = y.right
		if y.parent == z {
			x.parent = y
		} else {
			t.transplant(y, y.right)
			y.right = z.right
			y.right.parent = y
		}
		t.transplant(z, y)
		y.left = z.left
		y.left.parent = y
		y.color = z.color
	}
	if yOrig == black {
		t.deleteFixup(x)
	}
}

func (t *Tree) deleteFixup(x *node) {
	for x != t.root && x.color == black {
		if x == x.parent.left {
			w := x.parent.right
			if w.color == red {
				w.color = black
				x.parent.color = red
				t.rotateLeft(x.parent)
				w = x.parent.right
			}
			if w.left.color == black && w.right.color == black {
				w.color = red
				x = x.parent
			} else {
				if w.right.color == black {
					w.left.color = black
					w.color = red
					t.rotateRight(w)
					w = x.parent.right
				}
				w.color = x.parent.color
				x.parent.color = black
				w.right.color = black
				t.rotateLeft(x.parent)
				x = t.root
			}
		} else {
			w := x.parent.left
			if w.color == red {
				w.color = black
				x.parent.color = red
				t.rotateRight(x.parent)
				w = x.parent.left
			}
			if w.right.color == black && w.left.color == black {
				w.color = red
				x = x.parent
			} else {
				if w.left.color == black {
					w.right.color = black
					w.color = red
					t.rotateLeft(w)
					w = x.parent.left
				}
				w.color = x.parent.color
				x.parent.color = black
				w.left.color = black
				t.rotateRight(x.parent)
				x = t.root
			}
		}
	}
	x.color = black
}
