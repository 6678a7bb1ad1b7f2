package classfile

import (
	"fmt"
	"strconv"
	"strings"
)

// Disassemble renders a class in a javap -c like format.
func Disassemble(cf *ClassFile) string {
	var sb strings.Builder

	kind := "class"
	if cf.Access&AccInterface != 0 {
		kind = "interface"
	}
	sb.WriteString(fmt.Sprintf("%s%s %s", accessString(cf.Access&^(AccSuper|AccInterface)), kind, cf.ThisClass))
	if cf.SuperClass != "" && cf.SuperClass != "java/lang/Object" {
		sb.WriteString(" extends " + cf.SuperClass)
	}
	if len(cf.Interfaces) > 0 {
		sb.WriteString(" implements " + strings.Join(cf.Interfaces, ", "))
	}
	sb.WriteString(fmt.Sprintf("\n  version: %d.%d\n", cf.Major, cf.Minor))

	for _, f := range cf.Fields {
		sb.WriteString(fmt.Sprintf("\n  %s%s %s\n", accessString(f.Access), f.Name, f.Descriptor))
	}
	for _, m := range cf.Methods {
		sb.WriteString(fmt.Sprintf("\n  %s%s%s\n", accessString(m.Access), m.Name, m.Descriptor))
		if m.Code == nil {
			continue
		}
		sb.WriteString(fmt.Sprintf("    stack=%d, locals=%d\n", m.Code.MaxStack, m.Code.MaxLocals))
		disassembleCode(&sb, cf, m.Code)
	}
	return sb.String()
}

func disassembleCode(sb *strings.Builder, cf *ClassFile, code *Code) {
	instrs, err := Decode(code.Bytecode)
	if err != nil {
		sb.WriteString(fmt.Sprintf("    <invalid code: %v>\n", err))
		return
	}
	frames, err := cf.StackMap(code)
	if err != nil {
		sb.WriteString(fmt.Sprintf("    <invalid StackMapTable: %v>\n", err))
	}
	frameAt := make(map[int]StackMapFrame, len(frames))
	for _, f := range frames {
		frameAt[f.Offset] = f
	}

	for _, ins := range instrs {
		if f, ok := frameAt[ins.Offset]; ok {
			sb.WriteString(fmt.Sprintf("      frame: locals=%s stack=%s\n", vtypeList(f.Locals), vtypeList(f.Stack)))
		}
		sb.WriteString(fmt.Sprintf("    %4d: %-16s%s\n", ins.Offset, ins.Op, operandString(cf, ins)))
	}
}

func operandString(cf *ClassFile, ins Instruction) string {
	switch operandKindOf(ins.Op) {
	case opLocal, opS1, opS2, opNewArray:
		return strconv.Itoa(ins.Operands[0])
	case opIinc:
		return fmt.Sprintf("%d, %d", ins.Operands[0], ins.Operands[1])
	case opPool1, opPool2, opInterface, opDynamic, opMultiArray:
		return fmt.Sprintf("#%d // %s", ins.Operands[0], cf.describeConstant(uint16(ins.Operands[0])))
	case opBranch2, opBranch4:
		return strconv.Itoa(ins.Targets[0])
	case opTableSwitch, opLookupSwitch:
		parts := make([]string, len(ins.Targets))
		for i, t := range ins.Targets {
			parts[i] = strconv.Itoa(t)
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	case opWide:
		return fmt.Sprintf("%s %v", Opcode(ins.Operands[0]), ins.Operands[1:])
	}
	return ""
}

// describeConstant renders a pool entry the way javap comments do.
func (cf *ClassFile) describeConstant(idx uint16) string {
	if idx == 0 || int(idx) >= len(cf.Pool) {
		return "<bad index>"
	}
	e := cf.Pool[idx]
	switch e.Tag {
	case TagClass:
		name, _ := cf.ClassName(idx)
		return "class " + name
	case TagString:
		s, _ := cf.Utf8(e.A)
		return "String " + strconv.Quote(s)
	case TagInteger:
		return "int " + strconv.FormatInt(e.Int, 10)
	case TagLong:
		return "long " + strconv.FormatInt(e.Int, 10) + "l"
	case TagFloat:
		return "float " + strconv.FormatFloat(e.Float, 'g', -1, 32) + "f"
	case TagDouble:
		return "double " + strconv.FormatFloat(e.Float, 'g', -1, 64) + "d"
	case TagFieldref, TagMethodref, TagInterfaceMethodref:
		owner, name, desc, err := cf.MemberRef(idx)
		if err != nil {
			return "<" + err.Error() + ">"
		}
		kind := "Method"
		switch e.Tag {
		case TagFieldref:
			kind = "Field"
		case TagInterfaceMethodref:
			kind = "InterfaceMethod"
		}
		return fmt.Sprintf("%s %s.%s:%s", kind, owner, name, desc)
	}
	return fmt.Sprintf("tag %d", e.Tag)
}

func vtypeList(ts []VType) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func accessString(access uint16) string {
	var parts []string
	for _, f := range []struct {
		flag uint16
		name string
	}{
		{AccPublic, "public"}, {AccPrivate, "private"}, {AccProtected, "protected"},
		{AccStatic, "static"}, {AccFinal, "final"}, {AccAbstract, "abstract"}, {AccSynthetic, "synthetic"},
	} {
		if access&f.flag != 0 {
			parts = append(parts, f.name)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, " ") + " "
}
