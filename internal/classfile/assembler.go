package classfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// Label is a branch target. Labels bound with Mark may only be jumped to
// before they are marked; a loop head bound with MarkLoop also accepts
// backward jumps whose state fits the frame recorded there.
type Label struct {
	offset int
	bound  bool
	loop   bool
	// frame is the merged state of every jump seen so far.
	frame *frame
}

type frame struct {
	locals []VType // indexed by slot; the slot after a long/double is Top
	stack  []VType // one entry per value
}

func (f *frame) clone() *frame {
	return &frame{locals: append([]VType(nil), f.locals...), stack: append([]VType(nil), f.stack...)}
}

type fixup struct {
	at    int // position of the 2-byte offset operand
	from  int // offset of the branch instruction
	label *Label
}

// Assembler emits the bytecode of one method and tracks verification types
// as it goes. The first error is sticky; later calls are no-ops and Finish
// reports it.
type Assembler struct {
	pool  *ConstantPool
	owner string
	name  string

	code      []byte
	locals    []VType
	stack     []VType
	depth     int
	maxStack  int
	maxLocals int
	reachable bool

	fixups []fixup
	frames map[int]*frame
	err    error
}

func newAssembler(pool *ConstantPool, owner string, access uint16, name, desc string) *Assembler {
	a := &Assembler{pool: pool, owner: owner, name: name, reachable: true, frames: make(map[int]*frame)}
	if access&AccStatic == 0 {
		if name == "<init>" {
			a.locals = append(a.locals, VType{Tag: VUninitializedThis})
		} else {
			a.locals = append(a.locals, Object(owner))
		}
	}
	params, _, err := SplitMethodDescriptor(desc)
	if err != nil {
		a.err = err
		return a
	}
	for _, p := range params {
		t := VTypeOf(p)
		a.locals = append(a.locals, t)
		if t.Size() == 2 {
			a.locals = append(a.locals, Top)
		}
	}
	a.maxLocals = len(a.locals)
	return a
}

func (a *Assembler) fail(format string, args ...interface{}) {
	if a.err == nil {
		a.err = fmt.Errorf("%s.%s: %s", a.owner, a.name, fmt.Sprintf(format, args...))
	}
}

// Err returns the first error recorded.
func (a *Assembler) Err() error { return a.err }

// Reachable reports whether the next instruction can be executed.
func (a *Assembler) Reachable() bool { return a.reachable }

// Offset is the offset of the next instruction.
func (a *Assembler) Offset() int { return len(a.code) }

// StackDepth is the current operand stack height in slots.
func (a *Assembler) StackDepth() int { return a.depth }

// Stack returns a copy of the current operand stack, bottom first.
func (a *Assembler) Stack() []VType { return append([]VType(nil), a.stack...) }

func (a *Assembler) op(op Opcode) bool {
	if a.err != nil {
		return false
	}
	if !a.reachable {
		a.fail("emission of %s into unreachable code at offset %d", op, len(a.code))
		return false
	}
	a.code = append(a.code, byte(op))
	return true
}

func (a *Assembler) u1(v uint8)  { a.code = append(a.code, v) }
func (a *Assembler) u2(v uint16) { a.code = append(a.code, byte(v>>8), byte(v)) }

func (a *Assembler) push(t VType) {
	a.stack = append(a.stack, t)
	a.depth += t.Size()
	if a.depth > a.maxStack {
		a.maxStack = a.depth
	}
}

func (a *Assembler) pop() VType {
	if len(a.stack) == 0 {
		a.fail("stack underflow at offset %d", len(a.code))
		return Top
	}
	t := a.stack[len(a.stack)-1]
	a.stack = a.stack[:len(a.stack)-1]
	a.depth -= t.Size()
	return t
}

func (a *Assembler) popTag(tag VTag) VType {
	t := a.pop()
	if a.err == nil && t.Tag != tag {
		a.fail("expected %s on stack at offset %d, got %s", VType{Tag: tag}, len(a.code), t)
	}
	return t
}

func (a *Assembler) popRef() VType {
	t := a.pop()
	if a.err == nil && !t.IsReference() {
		a.fail("expected reference on stack at offset %d, got %s", len(a.code), t)
	}
	return t
}

// popAs pops a value that must be assignable to the descriptor type desc.
func (a *Assembler) popAs(desc string) {
	want := VTypeOf(desc)
	if want.IsReference() {
		a.popRef()
		return
	}
	a.popTag(want.Tag)
}

// Locals

// NewLocal reserves a fresh local slot for a value of type t. The slot is
// unset (Top) until stored to.
func (a *Assembler) NewLocal(t VType) int {
	slot := len(a.locals)
	for i := 0; i < t.Size(); i++ {
		a.locals = append(a.locals, Top)
	}
	if len(a.locals) > a.maxLocals {
		a.maxLocals = len(a.locals)
	}
	return slot
}

// LocalCount is the number of local slots currently in scope.
func (a *Assembler) LocalCount() int { return len(a.locals) }

// Truncate drops locals at and above slot n when a scope ends.
func (a *Assembler) Truncate(n int) {
	if n < len(a.locals) {
		a.locals = a.locals[:n]
	}
}

// LocalType returns the verification type of a local slot.
func (a *Assembler) LocalType(slot int) VType {
	if slot < 0 || slot >= len(a.locals) {
		return Top
	}
	return a.locals[slot]
}

func (a *Assembler) localOp(base, short Opcode, kind, slot int) {
	switch {
	case slot <= 3:
		a.op(short + Opcode(kind*4+slot))
	case slot <= 0xFF:
		if a.op(base + Opcode(kind)) {
			a.u1(uint8(slot))
		}
	default:
		if a.op(WIDE) {
			a.u1(uint8(base + Opcode(kind)))
			a.u2(uint16(slot))
		}
	}
}

// Load pushes a local onto the stack.
func (a *Assembler) Load(slot int) {
	t := a.LocalType(slot)
	if t.Tag == VTop {
		a.fail("load of unset local %d at offset %d", slot, len(a.code))
		return
	}
	a.localOp(ILOAD, 0x1a, kindIndex(t), slot)
	a.push(t)
}

// Store pops the top of the stack into a local.
func (a *Assembler) Store(slot int) {
	if len(a.stack) == 0 {
		a.fail("stack underflow at offset %d", len(a.code))
		return
	}
	t := a.stack[len(a.stack)-1]
	a.localOp(ISTORE, 0x3b, kindIndex(t), slot)
	a.pop()
	for len(a.locals) < slot+t.Size() {
		a.locals = append(a.locals, Top)
	}
	a.locals[slot] = t
	if t.Size() == 2 {
		a.locals[slot+1] = Top
	}
	if len(a.locals) > a.maxLocals {
		a.maxLocals = len(a.locals)
	}
}

// Constants

func (a *Assembler) ldc(idx uint16) {
	if idx <= 0xFF {
		if a.op(LDC) {
			a.u1(uint8(idx))
		}
		return
	}
	if a.op(LDC_W) {
		a.u2(idx)
	}
}

func (a *Assembler) PushInt(v int32) {
	switch {
	case v >= -1 && v <= 5:
		a.op(ICONST_M1 + Opcode(v+1))
	case v >= math.MinInt8 && v <= math.MaxInt8:
		if a.op(BIPUSH) {
			a.u1(uint8(int8(v)))
		}
	case v >= math.MinInt16 && v <= math.MaxInt16:
		if a.op(SIPUSH) {
			a.u2(uint16(int16(v)))
		}
	default:
		a.ldc(a.pool.Integer(v))
	}
	a.push(Integer)
}

func (a *Assembler) PushLong(v int64) {
	switch v {
	case 0, 1:
		a.op(LCONST_0 + Opcode(v))
	default:
		if a.op(LDC2_W) {
			a.u2(a.pool.Long(v))
		}
	}
	a.push(Long)
}

func (a *Assembler) PushFloat(v float32) {
	if (v == 0 && !math.Signbit(float64(v))) || v == 1 || v == 2 {
		a.op(FCONST_0 + Opcode(v))
	} else {
		a.ldc(a.pool.Float(v))
	}
	a.push(Float)
}

func (a *Assembler) PushDouble(v float64) {
	if (v == 0 && !math.Signbit(v)) || v == 1 {
		a.op(DCONST_0 + Opcode(v))
	} else if a.op(LDC2_W) {
		a.u2(a.pool.Double(v))
	}
	a.push(Double)
}

func (a *Assembler) PushString(s string) {
	a.ldc(a.pool.String(s))
	a.push(Object("java/lang/String"))
}

func (a *Assembler) PushNull() {
	a.op(ACONST_NULL)
	a.push(Null)
}

// Arithmetic

func arithType(op Opcode) VType {
	switch (op - IADD) % 4 {
	case 0:
		return Integer
	case 1:
		return Long
	case 2:
		return Float
	}
	return Double
}

// Math emits a binary (add through rem, ixor) or unary (neg) operator.
func (a *Assembler) Math(op Opcode) {
	switch {
	case op >= IADD && op <= DREM:
		t := arithType(op)
		if a.op(op) {
			a.popTag(t.Tag)
			a.popTag(t.Tag)
			a.push(t)
		}
	case op >= INEG && op <= DNEG:
		t := arithType(op)
		if a.op(op) {
			a.popTag(t.Tag)
			a.push(t)
		}
	case op == IXOR:
		if a.op(op) {
			a.popTag(VInteger)
			a.popTag(VInteger)
			a.push(Integer)
		}
	default:
		a.fail("%s is not an arithmetic instruction", op)
	}
}

var conversions = map[Opcode][2]VType{
	I2L: {Integer, Long}, I2F: {Integer, Float}, I2D: {Integer, Double},
	L2I: {Long, Integer}, L2F: {Long, Float}, L2D: {Long, Double},
	F2I: {Float, Integer}, F2L: {Float, Long}, F2D: {Float, Double},
	D2I: {Double, Integer}, D2L: {Double, Long}, D2F: {Double, Float},
	I2B: {Integer, Integer}, I2C: {Integer, Integer}, I2S: {Integer, Integer},
}

// Convert emits a primitive conversion such as i2l.
func (a *Assembler) Convert(op Opcode) {
	c, ok := conversions[op]
	if !ok {
		a.fail("%s is not a conversion", op)
		return
	}
	if a.op(op) {
		a.popTag(c[0].Tag)
		a.push(c[1])
	}
}

// Compare emits lcmp, fcmpl/g or dcmpl/g.
func (a *Assembler) Compare(op Opcode) {
	var t VType
	switch op {
	case LCMP:
		t = Long
	case FCMPL, FCMPG:
		t = Float
	case DCMPL, DCMPG:
		t = Double
	default:
		a.fail("%s is not a comparison", op)
		return
	}
	if a.op(op) {
		a.popTag(t.Tag)
		a.popTag(t.Tag)
		a.push(Integer)
	}
}

// Stack manipulation

// Pop discards the top value, using pop2 for long and double.
func (a *Assembler) Pop() {
	if len(a.stack) == 0 {
		a.fail("stack underflow at offset %d", len(a.code))
		return
	}
	if a.stack[len(a.stack)-1].Size() == 2 {
		a.op(POP2)
	} else {
		a.op(POP)
	}
	a.pop()
}

// Dup duplicates the top value, using dup2 for long and double.
func (a *Assembler) Dup() {
	if len(a.stack) == 0 {
		a.fail("stack underflow at offset %d", len(a.code))
		return
	}
	t := a.stack[len(a.stack)-1]
	if t.Size() == 2 {
		a.op(DUP2)
	} else {
		a.op(DUP)
	}
	a.push(t)
}

// DupX1 copies the top value below the second one. Both must be one slot.
func (a *Assembler) DupX1() {
	if !a.op(DUP_X1) {
		return
	}
	v1, v2 := a.pop(), a.pop()
	if v1.Size() != 1 || v2.Size() != 1 {
		a.fail("dup_x1 needs two single-slot values")
	}
	a.push(v1)
	a.push(v2)
	a.push(v1)
}

// Swap exchanges the two single-slot values on top of the stack.
func (a *Assembler) Swap() {
	if !a.op(SWAP) {
		return
	}
	v1, v2 := a.pop(), a.pop()
	if v1.Size() != 1 || v2.Size() != 1 {
		a.fail("swap needs two single-slot values")
	}
	a.push(v1)
	a.push(v2)
}

// Retype replaces the verification type of the top reference with t. Code
// generation uses it before a join so that both branches agree on the
// declared type of the value they leave behind.
func (a *Assembler) Retype(t VType) {
	if a.err != nil || !a.reachable {
		return
	}
	if len(a.stack) == 0 {
		a.fail("retype of empty stack")
		return
	}
	top := a.stack[len(a.stack)-1]
	if top.Size() != t.Size() || top.IsReference() != t.IsReference() {
		a.fail("cannot retype %s as %s", top, t)
		return
	}
	a.stack[len(a.stack)-1] = t
}

// Fields and objects

func (a *Assembler) GetStatic(owner, name, desc string) {
	if a.op(GETSTATIC) {
		a.u2(a.pool.Fieldref(owner, name, desc))
		a.push(VTypeOf(desc))
	}
}

func (a *Assembler) PutStatic(owner, name, desc string) {
	if a.op(PUTSTATIC) {
		a.u2(a.pool.Fieldref(owner, name, desc))
		a.popAs(desc)
	}
}

func (a *Assembler) GetField(owner, name, desc string) {
	if a.op(GETFIELD) {
		a.u2(a.pool.Fieldref(owner, name, desc))
		a.popRef()
		a.push(VTypeOf(desc))
	}
}

func (a *Assembler) PutField(owner, name, desc string) {
	if a.op(PUTFIELD) {
		a.u2(a.pool.Fieldref(owner, name, desc))
		a.popAs(desc)
		a.popRef()
	}
}

// New pushes an uninitialized instance of class.
func (a *Assembler) New(class string) {
	offset := len(a.code)
	if a.op(NEW) {
		a.u2(a.pool.Class(class))
		a.push(VType{Tag: VUninitialized, Class: class, Offset: offset})
	}
}

func (a *Assembler) CheckCast(class string) {
	if a.op(CHECKCAST) {
		a.u2(a.pool.Class(class))
		a.popRef()
		a.push(Object(class))
	}
}

func (a *Assembler) InstanceOf(class string) {
	if a.op(INSTANCEOF) {
		a.u2(a.pool.Class(class))
		a.popRef()
		a.push(Integer)
	}
}

// Invoke emits invokestatic, invokevirtual, invokespecial or
// invokeinterface. iface selects an InterfaceMethodref for the first three.
func (a *Assembler) Invoke(op Opcode, owner, name, desc string, iface bool) {
	params, ret, err := SplitMethodDescriptor(desc)
	if err != nil {
		a.fail("%v", err)
		return
	}
	var idx uint16
	if iface || op == INVOKEINTERFACE {
		idx = a.pool.InterfaceMethodref(owner, name, desc)
	} else {
		idx = a.pool.Methodref(owner, name, desc)
	}
	if !a.op(op) {
		return
	}
	a.u2(idx)
	slots := 1
	for i := len(params) - 1; i >= 0; i-- {
		a.popAs(params[i])
		slots += VTypeOf(params[i]).Size()
	}
	switch op {
	case INVOKESTATIC:
	case INVOKEINTERFACE:
		a.u1(uint8(slots))
		a.u1(0)
		a.popRef()
	case INVOKESPECIAL:
		recv := a.popRef()
		if name == "<init>" {
			a.initialize(recv)
		}
	case INVOKEVIRTUAL:
		a.popRef()
	default:
		a.fail("%s is not an invoke instruction", op)
	}
	if ret != "V" {
		a.push(VTypeOf(ret))
	}
}

// initialize replaces every copy of an uninitialized receiver with the
// initialized object type once its constructor ran.
func (a *Assembler) initialize(recv VType) {
	var to VType
	switch recv.Tag {
	case VUninitialized:
		to = Object(recv.Class)
	case VUninitializedThis:
		to = Object(a.owner)
	default:
		a.fail("<init> called on initialized %s", recv)
		return
	}
	for i, t := range a.stack {
		if t == recv {
			a.stack[i] = to
		}
	}
	for i, t := range a.locals {
		if t == recv {
			a.locals[i] = to
		}
	}
}

// Control flow

func (a *Assembler) Return() {
	if a.op(RETURN) {
		a.reachable = false
	}
}

// ReturnValue returns the top of the stack with the typed return opcode.
func (a *Assembler) ReturnValue() {
	if len(a.stack) == 0 {
		a.fail("stack underflow at offset %d", len(a.code))
		return
	}
	t := a.stack[len(a.stack)-1]
	if a.op(IRETURN + Opcode(kindIndex(t))) {
		a.pop()
		a.reachable = false
	}
}

func (a *Assembler) Throw() {
	if a.op(ATHROW) {
		a.popRef()
		a.reachable = false
	}
}

func (a *Assembler) NewLabel() *Label { return &Label{} }

// Jump emits a branch to l. Conditional branches pop their operands first.
func (a *Assembler) Jump(op Opcode, l *Label) {
	if l.bound && !l.loop {
		a.fail("backward jump to offset %d", l.offset)
		return
	}
	from := len(a.code)
	if !a.op(op) {
		return
	}
	switch {
	case op >= IFEQ && op <= IFLE:
		a.popTag(VInteger)
	case op >= IF_ICMPEQ && op <= IF_ICMPLE:
		a.popTag(VInteger)
		a.popTag(VInteger)
	case op == IF_ACMPEQ || op == IF_ACMPNE:
		a.popRef()
		a.popRef()
	case op == IFNULL || op == IFNONNULL:
		a.popRef()
	case op == GOTO:
	default:
		a.fail("%s is not a branch", op)
		return
	}
	a.fixups = append(a.fixups, fixup{at: len(a.code), from: from, label: l})
	a.u2(0)
	a.recordJump(l)
	if op == GOTO {
		a.reachable = false
	}
}

func (a *Assembler) current() *frame {
	return &frame{locals: a.locals, stack: a.stack}
}

func (a *Assembler) recordJump(l *Label) {
	if l.bound {
		if err := fits(a.current(), l.frame); err != nil {
			a.fail("backward jump to offset %d: %v", l.offset, err)
		}
		return
	}
	if l.frame == nil {
		l.frame = a.current().clone()
		return
	}
	merged, err := merge(l.frame, a.current())
	if err != nil {
		a.fail("at jump from offset %d: %v", len(a.code)-3, err)
		return
	}
	l.frame = merged
}

// Mark binds l to the current offset. If anything jumps to l, the state
// after Mark is the merge of all incoming states and a stack map frame is
// recorded for the offset.
func (a *Assembler) Mark(l *Label) {
	if a.err != nil {
		return
	}
	if l.bound {
		a.fail("label marked twice")
		return
	}
	l.bound = true
	l.offset = len(a.code)
	if l.frame == nil {
		return
	}
	state := l.frame
	if a.reachable {
		merged, err := merge(l.frame, a.current())
		if err != nil {
			a.fail("at offset %d: %v", l.offset, err)
			return
		}
		state = merged
	}
	if prev, ok := a.frames[l.offset]; ok {
		merged, err := merge(prev, state)
		if err != nil {
			a.fail("at offset %d: %v", l.offset, err)
			return
		}
		state = merged
	}
	a.frames[l.offset] = state.clone()
	a.locals = append([]VType(nil), state.locals...)
	a.stack = append([]VType(nil), state.stack...)
	a.depth = 0
	for _, t := range a.stack {
		a.depth += t.Size()
	}
	a.reachable = true
}

// MarkLoop binds l as a loop head. The state here is recorded as a frame at
// once and stays fixed: every later jump to l must fit it.
func (a *Assembler) MarkLoop(l *Label) {
	if a.err != nil {
		return
	}
	if l.bound || l.frame != nil {
		a.fail("loop head already in use")
		return
	}
	if !a.reachable {
		a.fail("loop head in unreachable code at offset %d", len(a.code))
		return
	}
	l.bound, l.loop = true, true
	l.offset = len(a.code)
	state := a.current().clone()
	if prev, ok := a.frames[l.offset]; ok {
		merged, err := merge(prev, state)
		if err != nil {
			a.fail("at offset %d: %v", l.offset, err)
			return
		}
		state = merged
	}
	a.frames[l.offset] = state
	l.frame = state.clone()
}

// Resume continues after an unconditional transfer as though the values in
// pushed had been left on the stack. The code that follows is dead; a frame
// is recorded so the verifier still accepts it.
func (a *Assembler) Resume(pushed ...VType) {
	if a.err != nil {
		return
	}
	if a.reachable {
		a.fail("resume in reachable code at offset %d", len(a.code))
		return
	}
	for _, t := range pushed {
		a.push(t)
	}
	state := a.current().clone()
	if prev, ok := a.frames[len(a.code)]; ok {
		merged, err := merge(prev, state)
		if err != nil {
			a.fail("at offset %d: %v", len(a.code), err)
			return
		}
		state = merged
	}
	a.frames[len(a.code)] = state
	a.locals = append([]VType(nil), state.locals...)
	a.stack = append([]VType(nil), state.stack...)
	a.depth = 0
	for _, t := range a.stack {
		a.depth += t.Size()
	}
	a.reachable = true
}

// fits reports whether a jump in state x may enter a target whose frame is
// y. Stacks must match and every live local of y must hold the same type in
// x; null fits any reference.
func fits(x, y *frame) error {
	if len(x.stack) != len(y.stack) {
		return fmt.Errorf("stack height %d does not fit %d", len(x.stack), len(y.stack))
	}
	for i := range y.stack {
		if !assignable(x.stack[i], y.stack[i]) {
			return fmt.Errorf("stack type %s does not fit %s", x.stack[i], y.stack[i])
		}
	}
	for i, t := range y.locals {
		if t.Tag == VTop {
			continue
		}
		if i >= len(x.locals) || !assignable(x.locals[i], t) {
			return fmt.Errorf("local %d does not fit %s", i, t)
		}
	}
	return nil
}

func assignable(from, to VType) bool {
	return from == to || from.Tag == VNull && to.IsReference()
}

// merge joins two states at a branch target. Locals that disagree become
// Top and only the common prefix survives; stacks must agree except that
// null joins with any reference.
func merge(x, y *frame) (*frame, error) {
	n := len(x.locals)
	if len(y.locals) < n {
		n = len(y.locals)
	}
	out := &frame{locals: make([]VType, n)}
	for i := 0; i < n; i++ {
		if x.locals[i] == y.locals[i] {
			out.locals[i] = x.locals[i]
		} else {
			out.locals[i] = Top
		}
	}
	// A long/double whose second half was cut off is no longer usable.
	if n > 0 && out.locals[n-1].Size() == 2 {
		out.locals[n-1] = Top
	}
	if len(x.stack) != len(y.stack) {
		return nil, fmt.Errorf("stack height mismatch at join: %d vs %d", len(x.stack), len(y.stack))
	}
	out.stack = make([]VType, len(x.stack))
	for i := range x.stack {
		s, t := x.stack[i], y.stack[i]
		switch {
		case s == t:
			out.stack[i] = s
		case s.Tag == VNull && t.IsReference():
			out.stack[i] = t
		case t.Tag == VNull && s.IsReference():
			out.stack[i] = s
		default:
			return nil, fmt.Errorf("incompatible stack types at join: %s vs %s", s, t)
		}
	}
	return out, nil
}

// finish resolves branches and encodes the Code attribute body.
func (a *Assembler) finish() ([]byte, error) {
	if a.err != nil {
		return nil, a.err
	}
	if a.reachable {
		return nil, fmt.Errorf("%s.%s: control falls off the end of the method", a.owner, a.name)
	}
	for _, f := range a.fixups {
		if !f.label.bound {
			return nil, fmt.Errorf("%s.%s: jump to unmarked label", a.owner, a.name)
		}
		delta := f.label.offset - f.from
		if delta > math.MaxInt16 || delta < math.MinInt16 {
			return nil, fmt.Errorf("%s.%s: branch offset %d out of range", a.owner, a.name, delta)
		}
		binary.BigEndian.PutUint16(a.code[f.at:], uint16(int16(delta)))
	}
	if len(a.code) > 0xFFFF {
		return nil, fmt.Errorf("%s.%s: method too large", a.owner, a.name)
	}

	var body bytes.Buffer
	binary.Write(&body, binary.BigEndian, uint16(a.maxStack))
	binary.Write(&body, binary.BigEndian, uint16(a.maxLocals))
	binary.Write(&body, binary.BigEndian, uint32(len(a.code)))
	body.Write(a.code)
	binary.Write(&body, binary.BigEndian, uint16(0)) // exception table
	if len(a.frames) == 0 {
		binary.Write(&body, binary.BigEndian, uint16(0))
		return body.Bytes(), nil
	}
	binary.Write(&body, binary.BigEndian, uint16(1))
	smt := a.stackMapTable()
	binary.Write(&body, binary.BigEndian, a.pool.Utf8("StackMapTable"))
	binary.Write(&body, binary.BigEndian, uint32(len(smt)))
	body.Write(smt)
	return body.Bytes(), nil
}

// stackMapTable encodes every recorded frame as a full_frame.
func (a *Assembler) stackMapTable() []byte {
	offsets := make([]int, 0, len(a.frames))
	for off := range a.frames {
		offsets = append(offsets, off)
	}
	sort.Ints(offsets)

	var b bytes.Buffer
	binary.Write(&b, binary.BigEndian, uint16(len(offsets)))
	prev := -1
	for _, off := range offsets {
		f := a.frames[off]
		b.WriteByte(255)
		binary.Write(&b, binary.BigEndian, uint16(off-prev-1))
		prev = off

		var locals []VType
		for i := 0; i < len(f.locals); i++ {
			locals = append(locals, f.locals[i])
			if f.locals[i].Size() == 2 {
				i++
			}
		}
		for len(locals) > 0 && locals[len(locals)-1].Tag == VTop {
			locals = locals[:len(locals)-1]
		}
		binary.Write(&b, binary.BigEndian, uint16(len(locals)))
		for _, t := range locals {
			a.writeVType(&b, t)
		}
		binary.Write(&b, binary.BigEndian, uint16(len(f.stack)))
		for _, t := range f.stack {
			a.writeVType(&b, t)
		}
	}
	return b.Bytes()
}

func (a *Assembler) writeVType(b *bytes.Buffer, t VType) {
	b.WriteByte(byte(t.Tag))
	switch t.Tag {
	case VObject:
		binary.Write(b, binary.BigEndian, a.pool.Class(t.Class))
	case VUninitialized:
		binary.Write(b, binary.BigEndian, uint16(t.Offset))
	}
}
