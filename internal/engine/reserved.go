package engine

import "strings"

// reservedNames contains Python keywords, builtins and well-known module
// names that must never be renamed. Renaming these would break program
// behavior (builtin lookup, imports, magic protocol methods).
var reservedNames = map[string]bool{
	// Keywords
	"False": true, "None": true, "True": true, "and": true, "as": true,
	"assert": true, "async": true, "await": true, "break": true,
	"class": true, "continue": true, "def": true, "del": true,
	"elif": true, "else": true, "except": true, "finally": true,
	"for": true, "from": true, "global": true, "if": true, "import": true,
	"in": true, "is": true, "lambda": true, "nonlocal": true, "not": true,
	"or": true, "pass": true, "raise": true, "return": true, "try": true,
	"while": true, "with": true, "yield": true,
	// Builtins
	"abs": true, "all": true, "any": true, "ascii": true, "bin": true,
	"bool": true, "bytearray": true, "bytes": true, "callable": true,
	"chr": true, "classmethod": true, "compile": true, "complex": true,
	"delattr": true, "dict": true, "dir": true, "divmod": true,
	"enumerate": true, "eval": true, "exec": true, "filter": true,
	"float": true, "format": true, "frozenset": true, "getattr": true,
	"globals": true, "hasattr": true, "hash": true, "help": true,
	"hex": true, "id": true, "input": true, "int": true,
	"isinstance": true, "issubclass": true, "iter": true, "len": true,
	"list": true, "locals": true, "map": true, "max": true,
	"memoryview": true, "min": true, "next": true, "object": true,
	"oct": true, "open": true, "ord": true, "pow": true, "print": true,
	"property": true, "range": true, "repr": true, "reversed": true,
	"round": true, "set": true, "setattr": true, "slice": true,
	"sorted": true, "staticmethod": true, "str": true, "sum": true,
	"super": true, "tuple": true, "type": true, "vars": true, "zip": true,
	"__import__": true,
	// Common exception types
	"BaseException": true, "Exception": true, "ArithmeticError": true,
	"AssertionError": true, "AttributeError": true, "EOFError": true,
	"FileNotFoundError": true, "ImportError": true, "IndexError": true,
	"KeyError": true, "KeyboardInterrupt": true, "LookupError": true,
	"MemoryError": true, "NameError": true, "NotImplementedError": true,
	"OSError": true, "OverflowError": true, "RecursionError": true,
	"RuntimeError": true, "StopIteration": true, "SyntaxError": true,
	"SystemError": true, "SystemExit": true, "TypeError": true,
	"UnicodeDecodeError": true, "UnicodeEncodeError": true,
	"UnicodeError": true, "ValueError": true, "ZeroDivisionError": true,
	// Special names and common parameters
	"self": true, "cls": true, "__name__": true, "__main__": true,
	"__file__": true, "__doc__": true, "__init__": true, "__new__": true,
	"__del__": true, "__repr__": true, "__str__": true, "__len__": true,
	"__call__": true, "__enter__": true, "__exit__": true,
	"__iter__": true, "__next__": true, "__getitem__": true,
	"__setitem__": true, "__contains__": true, "__eq__": true,
	"__ne__": true, "__lt__": true, "__le__": true, "__gt__": true,
	"__ge__": true, "__hash__": true, "__add__": true, "__sub__": true,
	"__mul__": true, "__all__": true, "__version__": true,
	// Standard library modules likely to appear in scripts
	"os": true, "sys": true, "re": true, "math": true, "json": true,
	"time": true, "random": true, "base64": true, "hashlib": true,
	"string": true, "itertools": true, "functools": true,
	"collections": true, "datetime": true, "pathlib": true,
	"subprocess": true, "socket": true, "struct": true, "shutil": true,
	"typing": true, "argparse": true, "logging": true, "io": true,
	"traceback": true, "copy": true, "pickle": true, "urllib": true,
	"threading": true, "csv": true, "textwrap": true, "unicodedata": true,
}

// decoderNames are the helper routines the engine itself emits. They are
// reserved so renaming and collision checks can never touch them.
var decoderNames = []string{
	decB64Name, decRotName, decRevName, decHexName,
	decTableName, decMultiName, decXorName,
}

func init() {
	for _, n := range decoderNames {
		reservedNames[n] = true
	}
}

// isReservedName reports whether an identifier must be left untouched.
// Dunder names are always protected even when not listed: they carry
// interpreter protocol meaning.
func isReservedName(name string) bool {
	if name == "" {
		return true
	}
	if reservedNames[name] {
		return true
	}
	if strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__") {
		return true
	}
	return false
}
