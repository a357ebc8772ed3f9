// Package irprint implements spec.md §4.5: the deterministic textual
// printer that turns an internal/ssa Module into LLVM IR text. It is a
// pure function of its input — the same Module always prints to the
// same bytes (spec.md §8's determinism invariant) — so every order this
// package walks (functions, blocks, phi incoming lists, vtable entries,
// string-pool entries) is either already fixed upstream or sorted here.
package irprint

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"latc/internal/ltypes"
	"latc/internal/runtimeabi"
	"latc/internal/ssa"
)

// wordType is the physical representation every object/array slot and
// array element occupies, regardless of its logical Latte type (spec.md
// §6's "all pointer-sized" layout convention): a 64-bit word, addressed
// as i64 and bitcast to the logical type at the point of use.
const wordType = "i64"

// Print renders m as a complete LLVM IR text module: runtime ABI
// declarations (only the symbols m's functions actually call), the
// string-literal pool as global constants, every class's vtable global,
// and every function body.
func Print(m *ssa.Module) string {
	var b strings.Builder

	for _, sym := range UsedSymbols(m) {
		b.WriteString(sym.Declaration())
		b.WriteString("\n")
	}
	b.WriteString("\n")

	for i, s := range m.Strings.Entries() {
		printStringGlobal(&b, i, s)
	}
	if len(m.Strings.Entries()) > 0 {
		b.WriteString("\n")
	}

	// Classes are printed in the order Generate built them, which walks
	// res.Program.Classes — the parse order, not map order, so this is
	// already deterministic without a sort here.
	for _, c := range m.Classes {
		printVTableGlobal(&b, c)
	}
	if len(m.Classes) > 0 {
		b.WriteString("\n")
	}

	for i, fn := range m.Functions {
		if i > 0 {
			b.WriteString("\n")
		}
		printFunction(&b, fn)
	}

	return b.String()
}

// UsedSymbols returns runtimeabi.All filtered to the symbols any
// function in m actually calls by name, in All's stable order — so the
// driver only links what a given program references (SPEC_FULL.md §4.7).
func UsedSymbols(m *ssa.Module) []runtimeabi.Symbol {
	referenced := map[string]bool{}
	for _, fn := range m.Functions {
		for _, blk := range fn.Blocks {
			for _, in := range blk.Body {
				if in.Op == ssa.OpCallDirect {
					if _, ok := runtimeabi.ByName[in.Callee]; ok {
						referenced[in.Callee] = true
					}
				}
			}
		}
	}
	var out []runtimeabi.Symbol
	for _, sym := range runtimeabi.All {
		if referenced[sym.Name] {
			out = append(out, sym)
		}
	}
	return out
}

func stringGlobalName(idx int) string { return fmt.Sprintf("@.str.%d", idx) }

func printStringGlobal(b *strings.Builder, idx int, s string) {
	escaped, length := escapeLLVMString(s)
	fmt.Fprintf(b, "%s = private unnamed_addr constant [%d x i8] c\"%s\"\n", stringGlobalName(idx), length, escaped)
}

// escapeLLVMString renders s as LLVM's `c"..."` byte-string syntax,
// escaping every non-printable-ASCII or quote/backslash byte as \XX, and
// appending the implicit NUL terminator LLVM string constants always
// carry.
func escapeLLVMString(s string) (string, int) {
	var out strings.Builder
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' || c == '\\' || c < 0x20 || c >= 0x7f {
			fmt.Fprintf(&out, "\\%02X", c)
		} else {
			out.WriteByte(c)
		}
		n++
	}
	out.WriteString("\\00")
	n++
	return out.String(), n
}

func vtableGlobalName(className string) string { return "@" + className + ".vtable" }

func printVTableGlobal(b *strings.Builder, c *ssa.ClassIR) {
	n := len(c.VTableFuncs)
	fmt.Fprintf(b, "%s = global [%d x i8*] [", vtableGlobalName(c.Name), n)
	for i, fnName := range c.VTableFuncs {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(b, "i8* bitcast (void ()* @%s to i8*)", fnName)
	}
	b.WriteString("]\n")
}

// llvmType maps a logical Latte type to the LLVM type used wherever that
// type appears directly in a signature or a bitcast target (not the
// physical word layout, which is always wordType regardless of this).
func llvmType(t ltypes.Type) string {
	switch t.Kind {
	case ltypes.KInt:
		return "i32"
	case ltypes.KBool:
		return "i1"
	case ltypes.KVoid:
		return "void"
	case ltypes.KStr, ltypes.KArray, ltypes.KClass, ltypes.KNull:
		return "i8*"
	case ltypes.KFunction:
		params := make([]string, len(t.Params))
		for i, p := range t.Params {
			params[i] = llvmType(p)
		}
		return llvmType(*t.Ret) + " (" + strings.Join(params, ", ") + ")*"
	default:
		return "i8*"
	}
}

func regName(id int) string { return "%r" + strconv.Itoa(id) }

func printFunction(b *strings.Builder, fn *ssa.FunctionIR) {
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = llvmType(p.Type) + " " + regName(p.Reg)
	}
	fmt.Fprintf(b, "define %s @%s(%s) {\n", llvmType(fn.ReturnType), fn.Name, strings.Join(params, ", "))
	for _, blk := range fn.Blocks {
		printBlock(b, blk)
	}
	b.WriteString("}\n")
}

func printBlock(b *strings.Builder, blk *ssa.BasicBlock) {
	fmt.Fprintf(b, "%s:\n", blk.Label)
	for _, p := range blk.Phis {
		printPhi(b, p)
	}
	for _, in := range blk.Body {
		printInstr(b, in)
	}
	printTerminator(b, blk.Terminator)
}

// printPhi emits incoming pairs sorted by predecessor label — the
// generator's own insertion order is already deterministic, but sorting
// here means a hypothetical future pass that inserts incomings out of
// order still prints byte-identically (spec.md §8).
func printPhi(b *strings.Builder, p *ssa.Phi) {
	incs := append([]ssa.Incoming(nil), p.Incs...)
	sort.Slice(incs, func(i, j int) bool { return incs[i].Pred < incs[j].Pred })
	parts := make([]string, len(incs))
	for i, inc := range incs {
		parts[i] = fmt.Sprintf("[ %s, %%%s ]", printValue(inc.Value), inc.Pred)
	}
	fmt.Fprintf(b, "  %s = phi %s %s\n", regName(p.Dst), llvmType(p.Type), strings.Join(parts, ", "))
}

func printValue(v ssa.Value) string {
	if v.IsReg() {
		return regName(v.Reg)
	}
	c := v.Const
	switch c.Kind {
	case ssa.CInt:
		return strconv.FormatInt(c.Int, 10)
	case ssa.CBool:
		if c.Bool {
			return "1"
		}
		return "0"
	case ssa.CStr:
		return fmt.Sprintf("bitcast ([* x i8]* %s to i8*)", stringGlobalName(c.Handle))
	case ssa.CNull:
		return "null"
	case ssa.CGlobalAddr:
		return fmt.Sprintf("bitcast (i8** %s to i8*)", "@"+c.Str)
	default:
		return "null"
	}
}

func printInstr(b *strings.Builder, in ssa.Instr) {
	switch in.Op {
	case ssa.OpAdd, ssa.OpSub, ssa.OpMul, ssa.OpSDiv, ssa.OpSRem:
		fmt.Fprintf(b, "  %s = %s i32 %s, %s\n", regName(in.Dst), arithMnemonic(in.Op), printValue(in.Args[0]), printValue(in.Args[1]))
	case ssa.OpICmpEq, ssa.OpICmpNe, ssa.OpICmpSlt, ssa.OpICmpSle, ssa.OpICmpSgt, ssa.OpICmpSge:
		operandType := llvmType(in.Args[0].Type)
		fmt.Fprintf(b, "  %s = icmp %s %s %s, %s\n", regName(in.Dst), cmpMnemonic(in.Op), operandType, printValue(in.Args[0]), printValue(in.Args[1]))
	case ssa.OpNeg:
		fmt.Fprintf(b, "  %s = sub i32 0, %s\n", regName(in.Dst), printValue(in.Args[0]))
	case ssa.OpNot:
		fmt.Fprintf(b, "  %s = xor i1 %s, 1\n", regName(in.Dst), printValue(in.Args[0]))
	case ssa.OpLoad:
		ptrType := llvmType(in.Type) + "*"
		fmt.Fprintf(b, "  %s = load %s, %s %s\n", regName(in.Dst), llvmType(in.Type), ptrType, printSlotPtr(in.Args[0], llvmType(in.Type)))
	case ssa.OpStore:
		ptrType := llvmType(in.Type) + "*"
		fmt.Fprintf(b, "  store %s %s, %s %s\n", llvmType(in.Type), printValue(in.Args[1]), ptrType, printSlotPtr(in.Args[0], llvmType(in.Type)))
	case ssa.OpGEP:
		printGEP(b, in)
	case ssa.OpCallDirect:
		printCall(b, in, "@"+in.Callee)
	case ssa.OpCallIndirect:
		fnType := llvmType(in.Args[0].Type)
		callee := fmt.Sprintf("(%s)(%s)", fnType, printValue(in.Args[0]))
		printCall(b, ssa.Instr{Dst: in.Dst, Type: in.Type, Args: in.Args[1:]}, callee)
	case ssa.OpBitcastNull:
		fmt.Fprintf(b, "  %s = bitcast (i8* null to %s)\n", regName(in.Dst), llvmType(in.Type))
	}
}

// printSlotPtr addresses a word-aligned slot pointer already computed by
// a prior GEP instruction (in.Args[0] here always holds such a pointer's
// Value, a register of logical type elemType) and bitcasts it from the
// physical word pointer to the concrete pointer type the load/store
// needs.
func printSlotPtr(ptr ssa.Value, elemType string) string {
	return fmt.Sprintf("bitcast (%s* %s to %s*)", wordType, printValue(ptr), elemType)
}

func printGEP(b *strings.Builder, in ssa.Instr) {
	switch in.GEP {
	case ssa.GEPField:
		base := printValue(in.Args[0])
		fmt.Fprintf(b, "  %s = getelementptr %s, %s* bitcast (i8* %s to %s*), i64 %d\n",
			regName(in.Dst), wordType, wordType, base, wordType, in.Slot)
	case ssa.GEPVTableSlot:
		base := printValue(in.Args[0])
		fmt.Fprintf(b, "  %s = getelementptr i8*, i8** bitcast (i8* %s to i8**), i64 %d\n",
			regName(in.Dst), base, in.Slot)
	case ssa.GEPArrayElem:
		arr := printValue(in.Args[0])
		idx := printValue(in.Args[1])
		fmt.Fprintf(b, "  %s = getelementptr %s, %s* bitcast (i8* %s to %s*), i64 add (i64 1, i64 %s)\n",
			regName(in.Dst), wordType, wordType, arr, wordType, idx)
	case ssa.GEPArrayLength:
		arr := printValue(in.Args[0])
		fmt.Fprintf(b, "  %s = getelementptr %s, %s* bitcast (i8* %s to %s*), i64 0\n",
			regName(in.Dst), wordType, wordType, arr, wordType)
	}
}

func printCall(b *strings.Builder, in ssa.Instr, callee string) {
	args := make([]string, len(in.Args))
	for i, a := range in.Args {
		args[i] = llvmType(a.Type) + " " + printValue(a)
	}
	call := fmt.Sprintf("call %s %s(%s)", llvmType(in.Type), callee, strings.Join(args, ", "))
	if in.Type.Kind == ltypes.KVoid {
		fmt.Fprintf(b, "  %s\n", call)
		return
	}
	fmt.Fprintf(b, "  %s = %s\n", regName(in.Dst), call)
}

func printTerminator(b *strings.Builder, t ssa.Terminator) {
	switch t.Kind {
	case ssa.TermBr:
		fmt.Fprintf(b, "  br label %%%s\n", t.Target)
	case ssa.TermCondBr:
		fmt.Fprintf(b, "  br i1 %s, label %%%s, label %%%s\n", printValue(t.Cond), t.IfTrue, t.IfFalse)
	case ssa.TermRet:
		fmt.Fprintf(b, "  ret %s %s\n", llvmType(t.Value.Type), printValue(t.Value))
	case ssa.TermRetVoid:
		b.WriteString("  ret void\n")
	}
}

func arithMnemonic(op ssa.Op) string {
	switch op {
	case ssa.OpAdd:
		return "add"
	case ssa.OpSub:
		return "sub"
	case ssa.OpMul:
		return "mul"
	case ssa.OpSDiv:
		return "sdiv"
	case ssa.OpSRem:
		return "srem"
	}
	return "add"
}

func cmpMnemonic(op ssa.Op) string {
	switch op {
	case ssa.OpICmpEq:
		return "eq"
	case ssa.OpICmpNe:
		return "ne"
	case ssa.OpICmpSlt:
		return "slt"
	case ssa.OpICmpSle:
		return "sle"
	case ssa.OpICmpSgt:
		return "sgt"
	case ssa.OpICmpSge:
		return "sge"
	}
	return "eq"
}
