// Package qstr implements the interned-string table and the per-file
// recency window used by .mpy string references.
package qstr

// Vocabulary is an immutable list of builtin qstrs. Builtin id i (1-based)
// names Names[i-1]; id 0 is the null qstr. A Vocabulary may be shared by
// any number of tables.
type Vocabulary struct {
	names []string
	index map[string]int
}

// NewVocabulary builds a vocabulary from names. The slice is copied.
func NewVocabulary(names []string) *Vocabulary {
	v := &Vocabulary{
		names: append([]string(nil), names...),
		index: make(map[string]int, len(names)),
	}
	for i, n := range v.names {
		if _, dup := v.index[n]; !dup {
			v.index[n] = i + 1
		}
	}
	return v
}

// Len returns the number of builtin names.
func (v *Vocabulary) Len() int { return len(v.names) }

// Name returns the text for builtin id. ok is false outside 1..Len.
func (v *Vocabulary) Name(id int) (string, bool) {
	if id < 1 || id > len(v.names) {
		return "", false
	}
	return v.names[id-1], true
}

// ID returns the builtin id of name, or 0.
func (v *Vocabulary) ID(name string) int {
	return v.index[name]
}

// Static is the builtin vocabulary baked into MicroPython v1.12-v1.18
// firmware (mpy format version 5). Order is significant: the position
// plus one is the byte written after a zero-length string reference.
var Static = NewVocabulary([]string{
	"",
	"__dir__",
	"\n",
	" ",
	"*",
	"/",
	"<module>",
	"_",
	"__call__",
	"__class__",
	"__delitem__",
	"__enter__",
	"__exit__",
	"__getattr__",
	"__getitem__",
	"__hash__",
	"__init__",
	"__int__",
	"__iter__",
	"__len__",
	"__main__",
	"__module__",
	"__name__",
	"__new__",
	"__next__",
	"__qualname__",
	"__repr__",
	"__setitem__",
	"__str__",
	"ArithmeticError",
	"AssertionError",
	"AttributeError",
	"BaseException",
	"EOFError",
	"Ellipsis",
	"Exception",
	"GeneratorExit",
	"ImportError",
	"IndentationError",
	"IndexError",
	"KeyError",
	"KeyboardInterrupt",
	"LookupError",
	"MemoryError",
	"NameError",
	"NoneType",
	"NotImplementedError",
	"OSError",
	"OverflowError",
	"RuntimeError",
	"StopIteration",
	"SyntaxError",
	"SystemExit",
	"TypeError",
	"ValueError",
	"ZeroDivisionError",
	"abs",
	"all",
	"any",
	"append",
	"args",
	"bool",
	"builtins",
	"bytearray",
	"bytecode",
	"bytes",
	"callable",
	"chr",
	"classmethod",
	"clear",
	"close",
	"const",
	"copy",
	"count",
	"dict",
	"dir",
	"divmod",
	"end",
	"endswith",
	"eval",
	"exec",
	"extend",
	"find",
	"format",
	"from_bytes",
	"get",
	"getattr",
	"globals",
	"hasattr",
	"hash",
	"id",
	"index",
	"insert",
	"int",
	"isalpha",
	"isdigit",
	"isinstance",
	"islower",
	"isspace",
	"issubclass",
	"isupper",
	"items",
	"iter",
	"join",
	"key",
	"keys",
	"len",
	"list",
	"little",
	"locals",
	"lower",
	"lstrip",
	"main",
	"map",
	"micropython",
	"next",
	"object",
	"open",
	"ord",
	"pop",
	"popitem",
	"pow",
	"print",
	"range",
	"read",
	"readinto",
	"readline",
	"remove",
	"replace",
	"repr",
	"reverse",
	"rfind",
	"rindex",
	"round",
	"rsplit",
	"rstrip",
	"self",
	"send",
	"sep",
	"set",
	"setattr",
	"setdefault",
	"sort",
	"sorted",
	"split",
	"start",
	"startswith",
	"staticmethod",
	"step",
	"stop",
	"str",
	"strip",
	"sum",
	"super",
	"throw",
	"to_bytes",
	"tuple",
	"type",
	"update",
	"upper",
	"utf-8",
	"value",
	"values",
	"write",
	"zip",
})
