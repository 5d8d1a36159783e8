package ast

// Type is the declared IEC 61131-3 type of a variable.
type Type int

const (
	TypeBool Type = iota
	TypeInt
	TypeReal
)

func (t Type) String() string {
	switch t {
	case TypeBool:
		return "BOOL"
	case TypeInt:
		return "INT"
	case TypeReal:
		return "REAL"
	default:
		return "?"
	}
}

// Direction records which VAR section a variable was declared in.
type Direction int

const (
	DirInternal Direction = iota
	DirInput
	DirOutput
)

func (d Direction) String() string {
	switch d {
	case DirInput:
		return "INPUT"
	case DirOutput:
		return "OUTPUT"
	case DirInternal:
		return "INTERNAL"
	default:
		return "?"
	}
}

type Program struct {
	Name       string
	Decls      []VarDecl
	Statements []Statement
}

// VarDecl is one `name : TYPE [:= literal];` entry. Init is nil when the
// declaration omits an initial value; otherwise it is a literal expression
// (BoolLit, IntLit or RealLit) with any unary minus already folded in.
type VarDecl struct {
	Name      string
	Type      Type
	Direction Direction
	Init      Expr
	Line      int
}

type Statement interface {
	isStatement()
}

type AssignStmt struct {
	Target string
	Expr   Expr
	Line   int
}

func (AssignStmt) isStatement() {}

// IfStmt mirrors IF/ELSIF.../ELSE/END_IF. The first branch whose condition
// holds runs exclusively; Else may be nil.
type IfStmt struct {
	Branches []IfBranch
	Else     []Statement
	Line     int
}

func (IfStmt) isStatement() {}

type IfBranch struct {
	Cond Expr
	Body []Statement
}

type Expr interface {
	isExpr()
}

type BoolLit struct {
	Value bool
}

func (BoolLit) isExpr() {}

type IntLit struct {
	Value int64
}

func (IntLit) isExpr() {}

type RealLit struct {
	Value float64
}

func (RealLit) isExpr() {}

// VarRef names a declared variable. Resolution is case-insensitive.
type VarRef struct {
	Name string
	Line int
}

func (VarRef) isExpr() {}

type UnaryExpr struct {
	Op   string // NOT | -
	Expr Expr
}

func (UnaryExpr) isExpr() {}

type BinaryExpr struct {
	Op    string // OR AND = <> > < >= <= + - * /
	Left  Expr
	Right Expr
}

func (BinaryExpr) isExpr() {}
