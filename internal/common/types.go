package common

type Enumerator struct {
	Name  string // e.g. "YDDirectionBuy"
	Value string // e.g. "0"
}

type Field struct {
	Name    string
	Type    string
	Tag     string // struct tag without backquotes, e.g. `json:"error_no"`
	Comment string
}

type Struct struct {
	Name   string
	Doc    string
	Fields []Field
}

type Enum struct {
	Name        string // Go type name, e.g. "YDDirection"
	BaseType    string // e.g. "int32"
	Doc         string
	Enumerators []Enumerator
}

type FunctionHeader struct {
	Doc        string
	MethodName string  // e.g. "NotifyLogin"
	Parameters []Field // Function parameter
	ReturnType string  // e.g. "bool", "int32" or omit for empty (void)
}

type ReceiverFunctionHeader struct {
	Doc          string
	ReceiverName string  // e.g. "a"
	ReceiverType string  // e.g. "*YDApi"
	MethodName   string  // e.g. "Login"
	Parameters   []Field // Function parameter
	ReturnType   string  // e.g. "bool", "int32" or omit for empty (void)
}

type FunctionBody struct {
	Rows []string // Each row is a line of code, will be tab‐indented and joined with newlines
}
