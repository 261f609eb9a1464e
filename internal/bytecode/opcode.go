// Package bytecode decodes MicroPython (mpy version 5) bytecode: function
// preludes, opcode operand formats and instruction boundaries.
package bytecode

import "fmt"

// Format is the operand shape of an opcode.
type Format uint8

const (
	FormatByte    Format = 0 // no operand
	FormatQstr    Format = 1 // 16-bit qstr id
	FormatVarUint Format = 2 // variable-length unsigned integer
	FormatOffset  Format = 3 // 16-bit jump offset
)

func (f Format) String() string {
	switch f {
	case FormatByte:
		return "byte"
	case FormatQstr:
		return "qstr"
	case FormatVarUint:
		return "var_uint"
	case FormatOffset:
		return "offset"
	default:
		return fmt.Sprintf("Format(%d)", uint8(f))
	}
}

// formatTable packs a 2-bit Format for each opcode high nibble.
const formatTable uint32 = 0x000003a4

// maskExtraByte selects the opcodes that carry one trailing byte operand.
const maskExtraByte = 0x9e

// OpcodeFormat returns the operand format of op.
func OpcodeFormat(op byte) Format {
	return Format((formatTable >> (2 * (op >> 4))) & 3)
}

// HasExtraByte reports whether op is followed by one extra byte after its
// format operand.
func HasExtraByte(op byte) bool {
	return op&maskExtraByte == 0
}

// Opcode bases and values for mpy version 5.
const (
	BaseQstrO = 0x10
	BaseVintE = 0x20
	BaseVintO = 0x30
	BaseJumpE = 0x40
	BaseByteO = 0x50
	BaseByteE = 0x60

	LoadConstSmallIntMulti = 0x70
	LoadFastMulti          = 0xb0
	StoreFastMulti         = 0xc0
	UnaryOpMulti           = 0xd0
	BinaryOpMulti          = 0xd7

	LoadConstString = BaseQstrO + 0x00
	LoadName        = BaseQstrO + 0x01
	LoadGlobal      = BaseQstrO + 0x02
	LoadAttr        = BaseQstrO + 0x03
	LoadMethod      = BaseQstrO + 0x04
	LoadSuperMethod = BaseQstrO + 0x05
	StoreName       = BaseQstrO + 0x06
	StoreGlobal     = BaseQstrO + 0x07
	StoreAttr       = BaseQstrO + 0x08
	DeleteName      = BaseQstrO + 0x09
	DeleteGlobal    = BaseQstrO + 0x0a
	ImportName      = BaseQstrO + 0x0b
	ImportFrom      = BaseQstrO + 0x0c

	MakeClosure        = BaseVintE + 0x00
	MakeClosureDefargs = BaseVintE + 0x01
	LoadConstSmallInt  = BaseVintE + 0x02
	LoadConstObj       = BaseVintE + 0x03
	LoadFastN          = BaseVintE + 0x04
	LoadDeref          = BaseVintE + 0x05
	StoreFastN         = BaseVintE + 0x06
	StoreDeref         = BaseVintE + 0x07
	DeleteFast         = BaseVintE + 0x08
	DeleteDeref        = BaseVintE + 0x09
	BuildTuple         = BaseVintE + 0x0a
	BuildList          = BaseVintE + 0x0b
	BuildMap           = BaseVintE + 0x0c
	BuildSet           = BaseVintE + 0x0d
	BuildSlice         = BaseVintE + 0x0e
	StoreComp          = BaseVintE + 0x0f

	UnpackSequence      = BaseVintO + 0x00
	UnpackEx            = BaseVintO + 0x01
	MakeFunction        = BaseVintO + 0x02
	MakeFunctionDefargs = BaseVintO + 0x03
	CallFunction        = BaseVintO + 0x04
	CallFunctionVarKw   = BaseVintO + 0x05
	CallMethod          = BaseVintO + 0x06
	CallMethodVarKw     = BaseVintO + 0x07

	UnwindJump       = BaseJumpE + 0x00
	Jump             = BaseJumpE + 0x02
	PopJumpIfTrue    = BaseJumpE + 0x03
	PopJumpIfFalse   = BaseJumpE + 0x04
	JumpIfTrueOrPop  = BaseJumpE + 0x05
	JumpIfFalseOrPop = BaseJumpE + 0x06
	SetupWith        = BaseJumpE + 0x07
	SetupExcept      = BaseJumpE + 0x08
	SetupFinally     = BaseJumpE + 0x09
	PopExceptJump    = BaseJumpE + 0x0a
	ForIter          = BaseJumpE + 0x0b

	LoadConstFalse = BaseByteO + 0x00
	LoadConstNone  = BaseByteO + 0x01
	LoadConstTrue  = BaseByteO + 0x02
	LoadNull       = BaseByteO + 0x03
	LoadBuildClass = BaseByteO + 0x04
	LoadSubscr     = BaseByteO + 0x05
	StoreSubscr    = BaseByteO + 0x06
	DupTop         = BaseByteO + 0x07
	DupTopTwo      = BaseByteO + 0x08
	PopTop         = BaseByteO + 0x09
	RotTwo         = BaseByteO + 0x0a
	RotThree       = BaseByteO + 0x0b
	WithCleanup    = BaseByteO + 0x0c
	EndFinally     = BaseByteO + 0x0d
	GetIter        = BaseByteO + 0x0e
	GetIterStack   = BaseByteO + 0x0f

	StoreMap    = BaseByteE + 0x02
	ReturnValue = BaseByteE + 0x03
	RaiseLast   = BaseByteE + 0x04
	RaiseObj    = BaseByteE + 0x05
	RaiseFrom   = BaseByteE + 0x06
	YieldValue  = BaseByteE + 0x07
	YieldFrom   = BaseByteE + 0x08
	ImportStar  = BaseByteE + 0x09
)

var opNames = map[byte]string{
	LoadConstString: "LOAD_CONST_STRING",
	LoadName:        "LOAD_NAME",
	LoadGlobal:      "LOAD_GLOBAL",
	LoadAttr:        "LOAD_ATTR",
	LoadMethod:      "LOAD_METHOD",
	LoadSuperMethod: "LOAD_SUPER_METHOD",
	StoreName:       "STORE_NAME",
	StoreGlobal:     "STORE_GLOBAL",
	StoreAttr:       "STORE_ATTR",
	DeleteName:      "DELETE_NAME",
	DeleteGlobal:    "DELETE_GLOBAL",
	ImportName:      "IMPORT_NAME",
	ImportFrom:      "IMPORT_FROM",

	MakeClosure:        "MAKE_CLOSURE",
	MakeClosureDefargs: "MAKE_CLOSURE_DEFARGS",
	LoadConstSmallInt:  "LOAD_CONST_SMALL_INT",
	LoadConstObj:       "LOAD_CONST_OBJ",
	LoadFastN:          "LOAD_FAST_N",
	LoadDeref:          "LOAD_DEREF",
	StoreFastN:         "STORE_FAST_N",
	StoreDeref:         "STORE_DEREF",
	DeleteFast:         "DELETE_FAST",
	DeleteDeref:        "DELETE_DEREF",
	BuildTuple:         "BUILD_TUPLE",
	BuildList:          "BUILD_LIST",
	BuildMap:           "BUILD_MAP",
	BuildSet:           "BUILD_SET",
	BuildSlice:         "BUILD_SLICE",
	StoreComp:          "STORE_COMP",

	UnpackSequence:      "UNPACK_SEQUENCE",
	UnpackEx:            "UNPACK_EX",
	MakeFunction:        "MAKE_FUNCTION",
	MakeFunctionDefargs: "MAKE_FUNCTION_DEFARGS",
	CallFunction:        "CALL_FUNCTION",
	CallFunctionVarKw:   "CALL_FUNCTION_VAR_KW",
	CallMethod:          "CALL_METHOD",
	CallMethodVarKw:     "CALL_METHOD_VAR_KW",

	UnwindJump:       "UNWIND_JUMP",
	Jump:             "JUMP",
	PopJumpIfTrue:    "POP_JUMP_IF_TRUE",
	PopJumpIfFalse:   "POP_JUMP_IF_FALSE",
	JumpIfTrueOrPop:  "JUMP_IF_TRUE_OR_POP",
	JumpIfFalseOrPop: "JUMP_IF_FALSE_OR_POP",
	SetupWith:        "SETUP_WITH",
	SetupExcept:      "SETUP_EXCEPT",
	SetupFinally:     "SETUP_FINALLY",
	PopExceptJump:    "POP_EXCEPT_JUMP",
	ForIter:          "FOR_ITER",

	LoadConstFalse: "LOAD_CONST_FALSE",
	LoadConstNone:  "LOAD_CONST_NONE",
	LoadConstTrue:  "LOAD_CONST_TRUE",
	LoadNull:       "LOAD_NULL",
	LoadBuildClass: "LOAD_BUILD_CLASS",
	LoadSubscr:     "LOAD_SUBSCR",
	StoreSubscr:    "STORE_SUBSCR",
	DupTop:         "DUP_TOP",
	DupTopTwo:      "DUP_TOP_TWO",
	PopTop:         "POP_TOP",
	RotTwo:         "ROT_TWO",
	RotThree:       "ROT_THREE",
	WithCleanup:    "WITH_CLEANUP",
	EndFinally:     "END_FINALLY",
	GetIter:        "GET_ITER",
	GetIterStack:   "GET_ITER_STACK",

	StoreMap:    "STORE_MAP",
	ReturnValue: "RETURN_VALUE",
	RaiseLast:   "RAISE_LAST",
	RaiseObj:    "RAISE_OBJ",
	RaiseFrom:   "RAISE_FROM",
	YieldValue:  "YIELD_VALUE",
	YieldFrom:   "YIELD_FROM",
	ImportStar:  "IMPORT_STAR",
}

// OpName returns the mnemonic of op. Multi-opcodes carry their embedded
// operand as a suffix; unassigned opcodes render as hex.
func OpName(op byte) string {
	if n, ok := opNames[op]; ok {
		return n
	}
	switch {
	case op >= LoadConstSmallIntMulti && op < LoadFastMulti:
		return fmt.Sprintf("LOAD_CONST_SMALL_INT_MULTI %d", int(op)-LoadConstSmallIntMulti-16)
	case op >= LoadFastMulti && op < StoreFastMulti:
		return fmt.Sprintf("LOAD_FAST_MULTI %d", op-LoadFastMulti)
	case op >= StoreFastMulti && op < UnaryOpMulti:
		return fmt.Sprintf("STORE_FAST_MULTI %d", op-StoreFastMulti)
	case op >= UnaryOpMulti && op < BinaryOpMulti:
		return fmt.Sprintf("UNARY_OP_MULTI %d", op-UnaryOpMulti)
	case op >= BinaryOpMulti:
		return fmt.Sprintf("BINARY_OP_MULTI %d", op-BinaryOpMulti)
	}
	return fmt.Sprintf("0x%02x", op)
}

// usesMapCache reports whether op carries a map-lookup cache byte when the
// file was compiled with MICROPY_OPT_CACHE_MAP_LOOKUP_IN_BYTECODE.
func usesMapCache(op byte) bool {
	switch op {
	case LoadName, LoadGlobal, LoadAttr, StoreAttr:
		return true
	}
	return false
}

// signedJump reports whether op's offset operand is biased by 0x8000.
func signedJump(op byte) bool {
	switch op {
	case UnwindJump, Jump, PopJumpIfTrue, PopJumpIfFalse, JumpIfTrueOrPop, JumpIfFalseOrPop:
		return true
	}
	return false
}
