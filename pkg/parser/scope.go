package parser

// scope is one level of known local variables. Method, class and module
// bodies start empty; block bodies see their enclosing scope through
// parent.
type scope struct {
	outer  *scope // previous scope on the stack
	parent *scope // where lookups continue, nil for hard boundaries
	vars   map[string]bool

	forwarding bool // the enclosing def takes ...
}

// undoEntry records a declaration so rewind can take it back.
type undoEntry struct {
	scope *scope
	name  string
}

// pushScope enters a new scope. A soft scope belongs to a block and
// falls through to the enclosing one.
func (p *Parser) pushScope(soft bool) {
	s := &scope{outer: p.scope, vars: make(map[string]bool)}
	if soft {
		s.parent = p.scope
	}
	p.scope = s
}

func (p *Parser) popScope() {
	if p.scope != nil {
		p.scope = p.scope.outer
	}
}

// declare adds name to the innermost scope.
func (p *Parser) declare(name string) {
	if p.scope == nil || p.scope.vars[name] {
		return
	}
	p.scope.vars[name] = true
	p.undo = append(p.undo, undoEntry{scope: p.scope, name: name})
}

// isLocal reports whether name is a known local. The lexer calls it while
// scanning.
func (p *Parser) isLocal(name string) bool {
	for s := p.scope; s != nil; s = s.parent {
		if s.vars[name] {
			return true
		}
	}
	return false
}

// canForward reports whether ... may be passed along from here.
func (p *Parser) canForward() bool {
	for s := p.scope; s != nil; s = s.parent {
		if s.forwarding {
			return true
		}
	}
	return false
}
