// Package registry is the Language Registry of spec.md §4.1: a frozen
// table, keyed by file extension, mapping to a grammar and an
// extraction query set. It is constant after process start; there is no
// mutation contract. Grounded on the teacher's
// internal/parser/parser_language_setup.go, whose ten setupX() methods
// are collapsed here into one map literal of pure data, since the spec
// calls for "patterns are pure data; adding a language is adding a row".
package registry

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_zig "github.com/tree-sitter-grammars/tree-sitter-zig/bindings/go"
	tree_sitter_csharp "github.com/tree-sitter/tree-sitter-c-sharp/bindings/go"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_php "github.com/tree-sitter/tree-sitter-php/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/standardbeagle/codeprop/internal/ids"
)

// LanguageDef is one row of the registry: a grammar plus the
// declarative tree-sitter query that recognizes each node kind in that
// language's syntax.
type LanguageDef struct {
	Name       string
	Extensions []string
	Grammar    func() *sitter.Language
	Query      string
}

// ReferenceCaptures maps a capture tag used for a *usage* site (a call,
// a superclass clause, an interface heritage list) to the EdgeKind the
// extractor should emit an UnresolvedRef for. These never produce a
// CodeNode themselves — only the decl captures in CaptureKinds do.
var ReferenceCaptures = map[string]ids.EdgeKind{
	"call":      ids.EdgeCalls,
	"superclass": ids.EdgeExtends,
	"heritage":  ids.EdgeImplements,
}

// CaptureKinds maps a tree-sitter query capture tag (the text before the
// first '.', e.g. "method" in "@method.name") to the CodeNode kind it
// marks. A capture whose tag has no entry here (e.g. "export", the Go
// binding's supplementary ".receiver" captures) carries no node of its
// own; the extractor uses it only for auxiliary span information.
var CaptureKinds = map[string]ids.Kind{
	"function":    ids.KindFunction,
	"method":      ids.KindMethod,
	"constructor": ids.KindConstructor,
	"class":       ids.KindClass,
	"record":      ids.KindClass,
	"interface":   ids.KindInterface,
	"struct":      ids.KindStruct,
	"enum":        ids.KindEnum,
	"trait":       ids.KindTrait,
	"impl":        ids.KindImpl,
	"module":      ids.KindModule,
	"package":     ids.KindModule,
	"namespace":   ids.KindNamespace,
	"import":      ids.KindImport,
	"using":       ids.KindImport,
	"variable":    ids.KindVariable,
	"constant":    ids.KindConstant,
	"field":       ids.KindField,
	"property":    ids.KindProperty,
	"type":        ids.KindClass,
	"delegate":    ids.KindFunction,
	"event":       ids.KindField,
	"annotation":  ids.KindInterface,
}

// languages builds the definition table once, at package init. The
// grammar accessor functions (tree_sitter_go.Language, etc.) return
// cgo-backed pointers, so each def wraps its accessor in Grammar and the
// pointer is only fetched when Grammar is called.
func languages() map[string]LanguageDef {
	defs := []LanguageDef{
		{
			Name:       "go",
			Extensions: []string{".go"},
			Grammar:    func() *sitter.Language { return sitter.NewLanguage(tree_sitter_go.Language()) },
			Query: `
        (function_declaration name: (identifier) @function.name) @function
        (method_declaration
            receiver: (parameter_list) @method.receiver
            name: (field_identifier) @method.name) @method
        (type_declaration
            (type_spec name: (type_identifier) @type.name)) @type
        (func_literal) @function
        (import_spec path: (interpreted_string_literal) @import.path) @import
        (call_expression function: (identifier) @call.name) @call
        (call_expression function: (selector_expression field: (field_identifier) @call.name)) @call
`,
		},
		{
			Name:       "python",
			Extensions: []string{".py"},
			Grammar:    func() *sitter.Language { return sitter.NewLanguage(tree_sitter_python.Language()) },
			Query: `
        (class_definition
            body: (block
                (function_definition name: (identifier) @method.name))) @method
        (function_definition name: (identifier) @function.name) @function
        (class_definition name: (identifier) @class.name) @class
        (class_definition superclasses: (argument_list (identifier) @superclass.name)) @superclass
        (import_statement) @import
        (import_from_statement) @import
        (call function: (identifier) @call.name) @call
        (call function: (attribute attribute: (identifier) @call.name)) @call
`,
		},
		{
			Name:       "javascript",
			Extensions: []string{".js", ".jsx"},
			Grammar:    func() *sitter.Language { return sitter.NewLanguage(tree_sitter_javascript.Language()) },
			Query: `
        (function_declaration name: (identifier) @function.name) @function
        (generator_function_declaration name: (identifier) @function.name) @function
        (variable_declarator
            name: (identifier) @function.name
            value: [(arrow_function) (function_expression) (generator_function)]) @function
        (variable_declarator
            name: (identifier) @variable.name
            value: (_) @variable.value) @variable
        (method_definition name: (property_identifier) @method.name) @method
        (class_declaration name: (identifier) @class.name) @class
        (class_heritage (extends_clause value: (identifier) @superclass.name))
        (export_statement declaration: (_) @export)
        (import_statement source: (string) @import.source) @import
        (call_expression function: (identifier) @call.name) @call
        (call_expression function: (member_expression property: (property_identifier) @call.name)) @call
`,
		},
		{
			Name:       "typescript",
			Extensions: []string{".ts", ".tsx"},
			Grammar: func() *sitter.Language {
				return sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
			},
			Query: `
        (function_declaration name: (identifier) @function.name) @function
        (generator_function_declaration name: (identifier) @function.name) @function
        (method_definition name: (property_identifier) @method.name) @method
        (arrow_function) @function
        (function_expression name: (identifier) @function.name) @function
        (class_declaration name: (type_identifier) @class.name) @class
        (interface_declaration name: (type_identifier) @interface.name) @interface
        (type_alias_declaration name: (type_identifier) @type.name) @type
        (enum_declaration name: (identifier) @enum.name) @enum
        (class_heritage (extends_clause value: (identifier) @superclass.name))
        (export_statement declaration: (_) @export)
        (import_statement source: (string) @import.source) @import
        (call_expression function: (identifier) @call.name) @call
        (call_expression function: (member_expression property: (property_identifier) @call.name)) @call
`,
		},
		{
			Name:       "java",
			Extensions: []string{".java"},
			Grammar:    func() *sitter.Language { return sitter.NewLanguage(tree_sitter_java.Language()) },
			Query: `
        (method_declaration name: (identifier) @method.name) @method
        (constructor_declaration name: (identifier) @constructor.name) @constructor
        (class_declaration name: (identifier) @class.name) @class
        (record_declaration name: (identifier) @class.name) @class
        (interface_declaration name: (identifier) @interface.name) @interface
        (enum_declaration name: (identifier) @enum.name) @enum
        (field_declaration declarator: (variable_declarator name: (identifier) @field.name)) @field
        (import_declaration) @import
        (package_declaration) @package
        (annotation_type_declaration name: (identifier) @annotation.name) @annotation
        (superclass (type_identifier) @superclass.name)
        (super_interfaces (type_list (type_identifier) @heritage.name))
        (method_invocation name: (identifier) @call.name) @call
`,
		},
		{
			Name:       "csharp",
			Extensions: []string{".cs"},
			Grammar:    func() *sitter.Language { return sitter.NewLanguage(tree_sitter_csharp.Language()) },
			Query: `
        (method_declaration name: (identifier) @method.name) @method
        (constructor_declaration name: (identifier) @constructor.name) @constructor
        (class_declaration name: (identifier) @class.name) @class
        (interface_declaration name: (identifier) @interface.name) @interface
        (struct_declaration name: (identifier) @struct.name) @struct
        (record_declaration name: (identifier) @record.name) @record
        (enum_declaration name: (identifier) @enum.name) @enum
        (property_declaration name: (identifier) @property.name) @property
        (field_declaration
            (variable_declaration
                (variable_declarator (identifier) @field.name))) @field
        (using_directive (qualified_name) @using.name) @using
        (using_directive (identifier) @using.name) @using
        (namespace_declaration name: (qualified_name) @namespace.name) @namespace
        (namespace_declaration name: (identifier) @namespace.name) @namespace
        (delegate_declaration name: (identifier) @delegate.name) @delegate
        (event_field_declaration
            (variable_declaration
                (variable_declarator (identifier) @event.name))) @event
`,
		},
		{
			Name:       "cpp",
			Extensions: []string{".cpp", ".cc", ".cxx", ".c", ".h", ".hpp"},
			Grammar:    func() *sitter.Language { return sitter.NewLanguage(tree_sitter_cpp.Language()) },
			Query: `
        (function_definition declarator: (function_declarator declarator: (identifier) @function.name)) @function
        (class_specifier name: (type_identifier) @class.name) @class
        (struct_specifier name: (type_identifier) @struct.name) @struct
        (enum_specifier name: (type_identifier) @enum.name) @enum
        (namespace_definition) @namespace
        (preproc_include) @import
        (using_declaration) @import
`,
		},
		{
			Name:       "php",
			Extensions: []string{".php", ".phtml"},
			Grammar:    func() *sitter.Language { return sitter.NewLanguage(tree_sitter_php.LanguagePHP()) },
			Query: `
        (class_declaration name: (name) @class.name) @class
        (interface_declaration name: (name) @interface.name) @interface
        (trait_declaration name: (name) @trait.name) @trait
        (enum_declaration name: (name) @enum.name) @enum
        (function_definition name: (name) @function.name) @function
        (method_declaration name: (name) @method.name) @method
        (namespace_definition name: (namespace_name) @namespace.name) @namespace
        (namespace_use_declaration) @import
        (property_declaration) @property
        (const_declaration) @constant
`,
		},
		{
			Name:       "rust",
			Extensions: []string{".rs"},
			Grammar:    func() *sitter.Language { return sitter.NewLanguage(tree_sitter_rust.Language()) },
			Query: `
        (impl_item
            body: (declaration_list
                (function_item name: (identifier) @method.name))) @method
        (trait_item
            body: (declaration_list
                (function_item name: (identifier) @method.name))) @method
        (function_item name: (identifier) @function.name) @function
        (struct_item name: (type_identifier) @struct.name) @struct
        (enum_item name: (type_identifier) @enum.name) @enum
        (trait_item name: (type_identifier) @interface.name) @interface
        (type_item name: (type_identifier) @type.name) @type
        (use_declaration) @import
        (mod_item name: (identifier) @module.name) @module
`,
		},
		{
			Name:       "zig",
			Extensions: []string{".zig"},
			Grammar:    func() *sitter.Language { return sitter.NewLanguage(tree_sitter_zig.Language()) },
			Query: `
        (function_declaration (identifier) @function.name) @function
        (variable_declaration
          (identifier) @struct.name
          (struct_declaration) @struct)
        (variable_declaration
          (identifier) @struct.name
          (union_declaration) @struct)
`,
		},
	}

	out := make(map[string]LanguageDef, 16)
	for _, d := range defs {
		for _, ext := range d.Extensions {
			out[ext] = d
		}
	}
	return out
}

var byExtension = languages()

// Lookup returns the LanguageDef registered for a file extension
// (including the leading dot, e.g. ".go"), and whether one exists.
func Lookup(extension string) (LanguageDef, bool) {
	d, ok := byExtension[extension]
	return d, ok
}

// Extensions returns every extension with a registry entry, for use by
// the file walker/watcher to decide what to even stat.
func Extensions() []string {
	out := make([]string, 0, len(byExtension))
	for ext := range byExtension {
		out = append(out, ext)
	}
	return out
}
