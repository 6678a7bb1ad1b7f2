// Package classfile reads and writes JVM class files (version 52).
//
// The writer side is an Assembler that tracks the verification type of every
// local and stack slot while code is emitted, so it can compute max stack,
// max locals and a StackMapTable without a second pass. The reader side
// parses class files for the foreign index, for tests and for the javap
// subcommand.
package classfile

// Opcode is a JVM instruction opcode.
type Opcode byte

const (
	NOP         Opcode = 0x00
	ACONST_NULL Opcode = 0x01
	ICONST_M1   Opcode = 0x02
	ICONST_0    Opcode = 0x03
	LCONST_0    Opcode = 0x09
	LCONST_1    Opcode = 0x0a
	FCONST_0    Opcode = 0x0b
	FCONST_1    Opcode = 0x0c
	FCONST_2    Opcode = 0x0d
	DCONST_0    Opcode = 0x0e
	DCONST_1    Opcode = 0x0f
	BIPUSH      Opcode = 0x10
	SIPUSH      Opcode = 0x11
	LDC         Opcode = 0x12
	LDC_W       Opcode = 0x13
	LDC2_W      Opcode = 0x14
	ILOAD       Opcode = 0x15
	LLOAD       Opcode = 0x16
	FLOAD       Opcode = 0x17
	DLOAD       Opcode = 0x18
	ALOAD       Opcode = 0x19
	ISTORE      Opcode = 0x36
	LSTORE      Opcode = 0x37
	FSTORE      Opcode = 0x38
	DSTORE      Opcode = 0x39
	ASTORE      Opcode = 0x3a
	POP         Opcode = 0x57
	POP2        Opcode = 0x58
	DUP         Opcode = 0x59
	DUP_X1      Opcode = 0x5a
	DUP2        Opcode = 0x5c
	SWAP        Opcode = 0x5f

	IADD Opcode = 0x60
	LADD Opcode = 0x61
	FADD Opcode = 0x62
	DADD Opcode = 0x63
	ISUB Opcode = 0x64
	LSUB Opcode = 0x65
	FSUB Opcode = 0x66
	DSUB Opcode = 0x67
	IMUL Opcode = 0x68
	LMUL Opcode = 0x69
	FMUL Opcode = 0x6a
	DMUL Opcode = 0x6b
	IDIV Opcode = 0x6c
	LDIV Opcode = 0x6d
	FDIV Opcode = 0x6e
	DDIV Opcode = 0x6f
	IREM Opcode = 0x70
	LREM Opcode = 0x71
	FREM Opcode = 0x72
	DREM Opcode = 0x73
	INEG Opcode = 0x74
	LNEG Opcode = 0x75
	FNEG Opcode = 0x76
	DNEG Opcode = 0x77
	IXOR Opcode = 0x82

	I2L Opcode = 0x85
	I2F Opcode = 0x86
	I2D Opcode = 0x87
	L2I Opcode = 0x88
	L2F Opcode = 0x89
	L2D Opcode = 0x8a
	F2I Opcode = 0x8b
	F2L Opcode = 0x8c
	F2D Opcode = 0x8d
	D2I Opcode = 0x8e
	D2L Opcode = 0x8f
	D2F Opcode = 0x90
	I2B Opcode = 0x91
	I2C Opcode = 0x92
	I2S Opcode = 0x93

	LCMP  Opcode = 0x94
	FCMPL Opcode = 0x95
	FCMPG Opcode = 0x96
	DCMPL Opcode = 0x97
	DCMPG Opcode = 0x98

	IFEQ      Opcode = 0x99
	IFNE      Opcode = 0x9a
	IFLT      Opcode = 0x9b
	IFGE      Opcode = 0x9c
	IFGT      Opcode = 0x9d
	IFLE      Opcode = 0x9e
	IF_ICMPEQ Opcode = 0x9f
	IF_ICMPNE Opcode = 0xa0
	IF_ICMPLT Opcode = 0xa1
	IF_ICMPGE Opcode = 0xa2
	IF_ICMPGT Opcode = 0xa3
	IF_ICMPLE Opcode = 0xa4
	IF_ACMPEQ Opcode = 0xa5
	IF_ACMPNE Opcode = 0xa6
	GOTO      Opcode = 0xa7

	TABLESWITCH  Opcode = 0xaa
	LOOKUPSWITCH Opcode = 0xab
	IRETURN      Opcode = 0xac
	LRETURN      Opcode = 0xad
	FRETURN      Opcode = 0xae
	DRETURN      Opcode = 0xaf
	ARETURN      Opcode = 0xb0
	RETURN       Opcode = 0xb1

	GETSTATIC       Opcode = 0xb2
	PUTSTATIC       Opcode = 0xb3
	GETFIELD        Opcode = 0xb4
	PUTFIELD        Opcode = 0xb5
	INVOKEVIRTUAL   Opcode = 0xb6
	INVOKESPECIAL   Opcode = 0xb7
	INVOKESTATIC    Opcode = 0xb8
	INVOKEINTERFACE Opcode = 0xb9
	INVOKEDYNAMIC   Opcode = 0xba
	NEW             Opcode = 0xbb
	NEWARRAY        Opcode = 0xbc
	ANEWARRAY       Opcode = 0xbd
	ATHROW          Opcode = 0xbf
	CHECKCAST       Opcode = 0xc0
	INSTANCEOF      Opcode = 0xc1
	WIDE            Opcode = 0xc4
	MULTIANEWARRAY  Opcode = 0xc5
	IFNULL          Opcode = 0xc6
	IFNONNULL       Opcode = 0xc7
	GOTO_W          Opcode = 0xc8
	JSR_W           Opcode = 0xc9
)

var opcodeNames = [...]string{
	"nop", "aconst_null", "iconst_m1", "iconst_0", "iconst_1", "iconst_2", "iconst_3", "iconst_4",
	"iconst_5", "lconst_0", "lconst_1", "fconst_0", "fconst_1", "fconst_2", "dconst_0", "dconst_1",
	"bipush", "sipush", "ldc", "ldc_w", "ldc2_w", "iload", "lload", "fload",
	"dload", "aload", "iload_0", "iload_1", "iload_2", "iload_3", "lload_0", "lload_1",
	"lload_2", "lload_3", "fload_0", "fload_1", "fload_2", "fload_3", "dload_0", "dload_1",
	"dload_2", "dload_3", "aload_0", "aload_1", "aload_2", "aload_3", "iaload", "laload",
	"faload", "daload", "aaload", "baload", "caload", "saload", "istore", "lstore",
	"fstore", "dstore", "astore", "istore_0", "istore_1", "istore_2", "istore_3", "lstore_0",
	"lstore_1", "lstore_2", "lstore_3", "fstore_0", "fstore_1", "fstore_2", "fstore_3", "dstore_0",
	"dstore_1", "dstore_2", "dstore_3", "astore_0", "astore_1", "astore_2", "astore_3", "iastore",
	"lastore", "fastore", "dastore", "aastore", "bastore", "castore", "sastore", "pop",
	"pop2", "dup", "dup_x1", "dup_x2", "dup2", "dup2_x1", "dup2_x2", "swap",
	"iadd", "ladd", "fadd", "dadd", "isub", "lsub", "fsub", "dsub",
	"imul", "lmul", "fmul", "dmul", "idiv", "ldiv", "fdiv", "ddiv",
	"irem", "lrem", "frem", "drem", "ineg", "lneg", "fneg", "dneg",
	"ishl", "lshl", "ishr", "lshr", "iushr", "lushr", "iand", "land",
	"ior", "lor", "ixor", "lxor", "iinc", "i2l", "i2f", "i2d",
	"l2i", "l2f", "l2d", "f2i", "f2l", "f2d", "d2i", "d2l",
	"d2f", "i2b", "i2c", "i2s", "lcmp", "fcmpl", "fcmpg", "dcmpl",
	"dcmpg", "ifeq", "ifne", "iflt", "ifge", "ifgt", "ifle", "if_icmpeq",
	"if_icmpne", "if_icmplt", "if_icmpge", "if_icmpgt", "if_icmple", "if_acmpeq", "if_acmpne", "goto",
	"jsr", "ret", "tableswitch", "lookupswitch", "ireturn", "lreturn", "freturn", "dreturn",
	"areturn", "return", "getstatic", "putstatic", "getfield", "putfield", "invokevirtual", "invokespecial",
	"invokestatic", "invokeinterface", "invokedynamic", "new", "newarray", "anewarray", "arraylength", "athrow",
	"checkcast", "instanceof", "monitorenter", "monitorexit", "wide", "multianewarray", "ifnull", "ifnonnull",
	"goto_w", "jsr_w",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	return "invalid"
}

// operandKind describes how the bytes after an opcode are laid out.
type operandKind int

const (
	opNone operandKind = iota
	opLocal
	opS1
	opS2
	opPool1
	opPool2
	opIinc
	opBranch2
	opBranch4
	opInterface
	opDynamic
	opNewArray
	opMultiArray
	opTableSwitch
	opLookupSwitch
	opWide
)

func operandKindOf(op Opcode) operandKind {
	switch {
	case op >= ILOAD && op <= ALOAD, op >= ISTORE && op <= ASTORE, op == 0xa9: // ret
		return opLocal
	case op == BIPUSH:
		return opS1
	case op == SIPUSH:
		return opS2
	case op == LDC:
		return opPool1
	case op == LDC_W, op == LDC2_W, op >= GETSTATIC && op <= INVOKESTATIC,
		op == NEW, op == ANEWARRAY, op == CHECKCAST, op == INSTANCEOF:
		return opPool2
	case op == 0x84:
		return opIinc
	case op >= IFEQ && op <= 0xa8, op == IFNULL, op == IFNONNULL:
		return opBranch2
	case op == GOTO_W, op == JSR_W:
		return opBranch4
	case op == INVOKEINTERFACE:
		return opInterface
	case op == INVOKEDYNAMIC:
		return opDynamic
	case op == NEWARRAY:
		return opNewArray
	case op == MULTIANEWARRAY:
		return opMultiArray
	case op == TABLESWITCH:
		return opTableSwitch
	case op == LOOKUPSWITCH:
		return opLookupSwitch
	case op == WIDE:
		return opWide
	}
	return opNone
}

// Access flags.
const (
	AccPublic    uint16 = 0x0001
	AccPrivate   uint16 = 0x0002
	AccProtected uint16 = 0x0004
	AccStatic    uint16 = 0x0008
	AccFinal     uint16 = 0x0010
	AccSuper     uint16 = 0x0020
	AccBridge    uint16 = 0x0040
	AccInterface uint16 = 0x0200
	AccAbstract  uint16 = 0x0400
	AccSynthetic uint16 = 0x1000
)
