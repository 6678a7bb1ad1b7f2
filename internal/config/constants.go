package config

// Version is recorded in build cache keys; bump it when codegen output changes.
const Version = "0.5.0"

const SourceFileExt = ".sasq"

// SourceFileExtensions are all recognized source file extensions
var SourceFileExtensions = []string{".sasq", ".sq"}

const ConfigFileName = "sasquach.yaml"

// Class file version emitted by codegen (Java 8, StackMapTable required).
const (
	ClassMajorVersion = 52
	ClassMinorVersion = 0
)

// Runtime support classes shared by all modules of a session.
const (
	RuntimePackage   = "sasquach/runtime"
	FuncClassPrefix  = RuntimePackage + "/Func"
	TupleClassPrefix = RuntimePackage + "/Tuple"
	OpsClassName     = RuntimePackage + "/Ops"
	FuncApplyName    = "apply"
)

// Built-in function names
const (
	PrintFuncName = "println"
	ShowFuncName  = "show"
	MainFuncName  = "main"
)

// Built-in type names
const (
	BoolTypeName   = "Bool"
	CharTypeName   = "Char"
	ByteTypeName   = "Byte"
	ShortTypeName  = "Short"
	IntTypeName    = "Int"
	LongTypeName   = "Long"
	FloatTypeName  = "Float"
	DoubleTypeName = "Double"
	StringTypeName = "String"
	UnitTypeName   = "Unit"
)

// Type parameter bounds
const (
	NumBoundName = "Num"
	OrdBoundName = "Ord"
)
