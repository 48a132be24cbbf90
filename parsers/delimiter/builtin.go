package delimiter

const (
	cStyleComment = "//"
	hashComment   = "#"
	dashComment   = "--"
	lispComment   = ";"
)

const (
	jvmModifiers = `(?:(?:public|private|protected|internal|static|final|abstract|sealed|open|override|virtual|async|` +
		`synchronized|native|partial|readonly|extern|unsafe|suspend|inline|data|case|implicit|lazy|const|default)\s+)*`
	jvmPattern = `^(?:@\w+(?:\([^)]*\))?\s+)*` + jvmModifiers +
		`(?:(?P<kind>class|interface|enum|record|struct|trait|object|fun|def|namespace|@interface)\s+(?P<name>[\w.]+)` +
		`|[\w<>\[\],.?]+\s+(?P<name2>\w+)\s*\([^;]*$)`
	cPattern = `^(?:(?P<kind>struct|class|enum|union|namespace|typedef\s+struct)\s+(?P<name>\w+)[^;]*$` +
		`|(?:template\s*<[^>]*>\s*)?(?:[\w*&:<>,]+\s+)+\**(?P<name2>[\w:~]+)\s*\([^;]*$)`
	jsPattern = `^(?:export\s+)?(?:default\s+)?(?:declare\s+)?(?:async\s+)?` +
		`(?:(?P<kind>function\*?|class|interface|enum|type|namespace|abstract\s+class)\s+(?P<name>[\w$]+)` +
		`|(?:const|let|var)\s+(?P<name2>[\w$]+)\s*(?::[^=]+)?=\s*(?:async\s*)?(?:function\b|\([^)]*\)\s*(?::[^=]+)?=>|[\w$]+\s*=>))`
)

var builtinDefinitions = []Definition{
	// Brace family.
	{Language: "go", Family: FamilyBrace, Comment: cStyleComment, Kind: "func", Extensions: []string{".go"},
		Pattern: `^(?P<kind>func|type|var|const)\b\s*(?:\([^)]*\)\s*)?(?P<name>\w+)?`},
	{Language: "c", Family: FamilyBrace, Comment: cStyleComment, Kind: "function", Extensions: []string{".c", ".h"},
		Pattern: cPattern},
	{Language: "cpp", Family: FamilyBrace, Comment: cStyleComment, Kind: "function",
		Extensions: []string{".cpp", ".cc", ".cxx", ".hpp", ".hh", ".hxx"}, Pattern: cPattern},
	{Language: "objc", Family: FamilyBrace, Comment: cStyleComment, Kind: "method", Extensions: []string{".m", ".mm"},
		Pattern: `^(?:(?P<kind>@interface|@implementation|@protocol)\s+(?P<name>\w+)|[-+]\s*\([^)]*\)\s*(?P<name2>\w+))`},
	{Language: "csharp", Family: FamilyBrace, Comment: cStyleComment, Kind: "method", Extensions: []string{".cs"},
		Pattern: jvmPattern},
	{Language: "java", Family: FamilyBrace, Comment: cStyleComment, Kind: "method", Extensions: []string{".java"},
		Pattern: jvmPattern},
	{Language: "kotlin", Family: FamilyBrace, Comment: cStyleComment, Kind: "fun", Extensions: []string{".kt", ".kts"},
		Pattern: jvmPattern},
	{Language: "scala", Family: FamilyBrace, Comment: cStyleComment, Kind: "def", Extensions: []string{".scala", ".sc"},
		Pattern: jvmPattern},
	{Language: "groovy", Family: FamilyBrace, Comment: cStyleComment, Kind: "def", Extensions: []string{".groovy", ".gradle"},
		Pattern: jvmPattern},
	{Language: "dart", Family: FamilyBrace, Comment: cStyleComment, Kind: "method", Extensions: []string{".dart"},
		Pattern: jvmPattern},
	{Language: "javascript", Family: FamilyBrace, Comment: cStyleComment, Kind: "function",
		Extensions: []string{".js", ".mjs", ".cjs"}, Pattern: jsPattern},
	{Language: "jsx", Family: FamilyBrace, Comment: cStyleComment, Kind: "function", Extensions: []string{".jsx"},
		Pattern: jsPattern},
	{Language: "typescript", Family: FamilyBrace, Comment: cStyleComment, Kind: "function",
		Extensions: []string{".ts", ".mts", ".cts"}, Pattern: jsPattern},
	{Language: "tsx", Family: FamilyBrace, Comment: cStyleComment, Kind: "function", Extensions: []string{".tsx"},
		Pattern: jsPattern},
	{Language: "rust", Family: FamilyBrace, Comment: cStyleComment, Kind: "fn", Extensions: []string{".rs"},
		Pattern: `^(?:pub(?:\([^)]*\))?\s+)?(?:(?:async|unsafe|const|default|extern\s+"\w+")\s+)*(?P<kind>fn|struct|enum|trait|impl|mod|union|macro_rules!)\s*(?P<name>[\w<>:]+)?`},
	{Language: "swift", Family: FamilyBrace, Comment: cStyleComment, Kind: "func", Extensions: []string{".swift"},
		Pattern: `^(?:(?:public|private|internal|open|fileprivate|static|final|override|mutating|class|@\w+)\s+)*(?P<kind>func|class|struct|enum|protocol|extension|actor|init)\b\s*(?P<name>\w+)?`},
	{Language: "php", Family: FamilyBrace, Comment: cStyleComment, Kind: "function", Extensions: []string{".php"},
		Pattern: `^(?:(?:public|private|protected|static|abstract|final|readonly)\s+)*(?P<kind>function|class|interface|trait|enum)\s+&?(?P<name>\w+)`},
	{Language: "css", Family: FamilyBrace, Kind: "rule", Extensions: []string{".css"},
		Pattern: `^(?P<name>[^{};/\s][^{};]*?)\s*\{`},
	{Language: "scss", Family: FamilyBrace, Comment: cStyleComment, Kind: "rule", Extensions: []string{".scss", ".sass"},
		Pattern: `^(?:@(?P<kind>mixin|function)\s+(?P<name>[\w-]+)|(?P<name2>[^{};/\s@][^{};]*?)\s*\{)`},
	{Language: "less", Family: FamilyBrace, Comment: cStyleComment, Kind: "rule", Extensions: []string{".less"},
		Pattern: `^(?P<name>[^{};/\s][^{};]*?)\s*\{`},
	{Language: "bash", Family: FamilyBrace, Comment: hashComment, Kind: "function",
		Extensions: []string{".sh", ".bash", ".zsh", ".ksh"},
		Pattern:    `^(?:function\s+(?P<name>[\w:-]+)|(?P<name2>[\w:-]+)\s*\(\)\s*\{?)`},
	{Language: "powershell", Family: FamilyBrace, Comment: hashComment, Kind: "function", Extensions: []string{".ps1", ".psm1"},
		Pattern: `^(?i:(?P<kind>function|filter|class))\s+(?P<name>[\w-]+)`},
	{Language: "perl", Family: FamilyBrace, Comment: hashComment, Kind: "sub", Extensions: []string{".pl", ".pm"},
		Pattern: `^(?P<kind>sub|package)\s+(?P<name>[\w:]+)`},
	{Language: "solidity", Family: FamilyBrace, Comment: cStyleComment, Kind: "function", Extensions: []string{".sol"},
		Pattern: `^(?:abstract\s+)?(?P<kind>contract|interface|library|function|modifier|struct|enum|event|constructor)\b\s*(?P<name>\w+)?`},
	{Language: "zig", Family: FamilyBrace, Comment: cStyleComment, Kind: "fn", Extensions: []string{".zig"},
		Pattern: `^(?:pub\s+)?(?:export\s+|inline\s+)?(?P<kind>fn|const|var|test)\s+"?(?P<name>\w+)`},
	{Language: "graphql", Family: FamilyBrace, Comment: hashComment, Kind: "type", Extensions: []string{".graphql", ".gql"},
		Pattern: `^(?:extend\s+)?(?P<kind>type|input|enum|interface|union|schema|query|mutation|subscription|fragment)\b\s*(?P<name>\w+)?`},
	{Language: "hcl", Family: FamilyBrace, Comment: hashComment, Kind: "block", Extensions: []string{".hcl", ".tf", ".tfvars", ".nomad"},
		Pattern: `^(?P<kind>resource|data|module|variable|output|provider|locals|terraform|job|group|task)\b\s*(?:"(?P<name>[^"]+)")?`},
	{Language: "protobuf", Family: FamilyBrace, Comment: cStyleComment, Kind: "message", Extensions: []string{".proto"},
		Pattern: `^(?P<kind>message|service|enum|extend|oneof)\s+(?P<name>[\w.]+)`},
	{Language: "json", Family: FamilyBrace, Kind: "key", Extensions: []string{".json", ".jsonc", ".json5"},
		Pattern: `^"(?P<name>[^"]+)"\s*:\s*[\[{]`},

	// Indent family.
	{Language: "python", Family: FamilyIndent, Comment: hashComment, Kind: "def", Extensions: []string{".py", ".pyi", ".pyw"},
		Pattern: `^(?:async\s+)?(?P<kind>def|class)\s+(?P<name>\w+)`},
	{Language: "coffeescript", Family: FamilyIndent, Comment: hashComment, Kind: "function", Extensions: []string{".coffee"},
		Pattern: `^(?:(?P<kind>class)\s+(?P<name>[\w.]+)|(?P<name2>[\w.@]+)\s*[:=]\s*(?:\([^)]*\)\s*)?[-=]>)`},
	{Language: "nim", Family: FamilyIndent, Comment: hashComment, Kind: "proc", Extensions: []string{".nim"},
		Pattern: `^(?P<kind>proc|func|method|type|template|macro|iterator|converter)\s+(?P<name>\w+)`},
	{Language: "fsharp", Family: FamilyIndent, Comment: cStyleComment, Kind: "let", Extensions: []string{".fs", ".fsx", ".fsi"},
		Pattern: `^(?:(?:static|override|abstract|default)\s+)*(?P<kind>let|type|module|member)\s+(?:rec\s+|inline\s+|private\s+)*(?P<name>[\w.]+)`},
	{Language: "gdscript", Family: FamilyIndent, Comment: hashComment, Kind: "func", Extensions: []string{".gd"},
		Pattern: `^(?:static\s+)?(?P<kind>func|class)\s+(?P<name>\w+)`},
	{Language: "yaml", Family: FamilyIndent, Comment: hashComment, Kind: "key", Extensions: []string{".yaml", ".yml"},
		Pattern: `^(?P<name>[\w.-]+|"[^"]+"):(?:\s|$)`},
	{Language: "makefile", Family: FamilyIndent, Comment: hashComment, Kind: "target", Extensions: []string{".mk", ".mak"},
		Pattern: `^(?P<name>[\w./%$(){}-]+(?:\s+[\w./%$(){}-]+)*)\s*::?(?:[^=]|$)`},

	// Keyword-end family.
	{Language: "ruby", Family: FamilyKeywordEnd, Comment: hashComment, Kind: "def", Extensions: []string{".rb", ".rake", ".gemspec"},
		Pattern: `^(?P<kind>def|class|module)\s+(?P<name>[\w:.?!=<>]+)`},
	{Language: "crystal", Family: FamilyKeywordEnd, Comment: hashComment, Kind: "def", Extensions: []string{".cr"},
		Pattern: `^(?:private\s+|abstract\s+)?(?P<kind>def|class|module|struct|macro)\s+(?P<name>[\w:.?!=]+)`},
	{Language: "lua", Family: FamilyKeywordEnd, Comment: dashComment, Kind: "function", Extensions: []string{".lua"},
		Pattern: `^(?:local\s+)?(?P<kind>function)\s+(?P<name>[\w.:]+)`},
	{Language: "elixir", Family: FamilyKeywordEnd, Comment: hashComment, Kind: "def", Extensions: []string{".ex", ".exs"},
		Pattern: `^(?P<kind>defmodule|defp?|defmacrop?|defprotocol|defimpl)\s+(?P<name>[\w.?!]+)`},
	{Language: "julia", Family: FamilyKeywordEnd, Comment: hashComment, Kind: "function", Extensions: []string{".jl"},
		Pattern: `^(?P<kind>function|struct|mutable\s+struct|module|macro|abstract\s+type)\s+(?P<name>[\w.!]+)`},
	{Language: "vb", Family: FamilyKeywordEnd, Comment: "'", Kind: "sub", Extensions: []string{".vb", ".bas", ".vbs"},
		Pattern: `^(?i:(?:public|private|friend|protected|shared|overrides|overridable|static)\s+)*(?P<kind>(?i:sub|function|class|module|structure|interface|property))\s+(?P<name>\w+)`},
	{Language: "pascal", Family: FamilyKeywordEnd, Comment: cStyleComment, Kind: "procedure", Extensions: []string{".pas", ".pp", ".dpr", ".lpr"},
		Pattern: `^(?i:(?:class\s+)?(?P<kind>procedure|function|constructor|destructor))\s+(?P<name>[\w.]+)`},
	{Language: "fortran", Family: FamilyKeywordEnd, Comment: "!", Kind: "subroutine", Extensions: []string{".f90", ".f95", ".f03", ".f"},
		Pattern: `^(?i:(?:recursive\s+|pure\s+|elemental\s+)*(?P<kind>subroutine|function|program|module))\s+(?P<name>\w+)`},
	{Language: "matlab", Family: FamilyKeywordEnd, Comment: "%", Kind: "function",
		Pattern: `^(?P<kind>function|classdef)\b(?:[^=]*=)?\s*(?P<name>\w+)`},

	// Heading family.
	{Language: "markdown", Family: FamilyHeading, Kind: "heading", Extensions: []string{".md", ".markdown", ".mdx"},
		Pattern: `^(?P<level>#{1,6})\s+(?P<name>.+?)\s*#*$`},
	{Language: "asciidoc", Family: FamilyHeading, Kind: "heading", Extensions: []string{".adoc", ".asciidoc"},
		Pattern: `^(?P<level>={1,6})\s+(?P<name>.+)$`},
	{Language: "org", Family: FamilyHeading, Kind: "heading", Extensions: []string{".org"},
		Pattern: `^(?P<level>\*{1,8})\s+(?P<name>.+)$`},
	{Language: "latex", Family: FamilyHeading, Kind: "section", Extensions: []string{".tex", ".sty"},
		Pattern: `^\\(?P<kind>part|chapter|section|subsection|subsubsection|paragraph)\*?\{(?P<name>[^}]*)\}`},
	{Language: "rst", Family: FamilyHeading, Kind: "heading", Underline: true, Extensions: []string{".rst"},
		Pattern: `^(?P<name>\S.*)$`},
	{Language: "dockerfile", Family: FamilyHeading, Comment: hashComment, Kind: "from", Extensions: []string{".dockerfile"},
		Pattern: `^(?i:(?P<kind>from))\s+(?P<name>\S+(?:\s+(?i:as)\s+\S+)?)`},

	// Lisp family.
	{Language: "clojure", Family: FamilyLisp, Comment: lispComment, Kind: "defn", Extensions: []string{".clj", ".cljs", ".cljc", ".edn"},
		Pattern: `^\((?P<kind>defn-?|defmacro|defmulti|defmethod|defprotocol|defrecord|deftype|defonce|def|ns)\s+(?P<name>[^\s()\[\]]+)`},
	{Language: "scheme", Family: FamilyLisp, Comment: lispComment, Kind: "define", Extensions: []string{".scm", ".ss"},
		Pattern: `^\((?P<kind>define(?:-syntax|-record-type|-module)?|module)\s+\(?(?P<name>[^\s()]+)`},
	{Language: "racket", Family: FamilyLisp, Comment: lispComment, Kind: "define", Extensions: []string{".rkt"},
		Pattern: `^\((?P<kind>define(?:-syntax|-values|/contract)?|struct|module\+?)\s+\(?(?P<name>[^\s()]+)`},
	{Language: "commonlisp", Family: FamilyLisp, Comment: lispComment, Kind: "defun", Extensions: []string{".lisp", ".lsp", ".cl", ".asd"},
		Pattern: `^\((?P<kind>defun|defmacro|defvar|defparameter|defclass|defstruct|defgeneric|defmethod|defconstant|defpackage|in-package)\s+(?P<name>[^\s()]+)`},
	{Language: "elisp", Family: FamilyLisp, Comment: lispComment, Kind: "defun", Extensions: []string{".el"},
		Pattern: `^\((?P<kind>defun|defmacro|defvar|defconst|defcustom|defgroup|define-minor-mode|define-derived-mode|use-package)\s+(?P<name>[^\s()]+)`},

	// Statement family.
	{Language: "sql", Family: FamilyStatement, Comment: dashComment, Kind: "statement",
		Extensions: []string{".sql", ".ddl", ".psql", ".pgsql"},
		Pattern:    `^(?i:(?P<kind>create(?:\s+or\s+replace)?(?:\s+(?:temporary|temp|unique|materialized))?\s+\w+(?:\s+if\s+not\s+exists)?|alter\s+\w+|drop\s+\w+(?:\s+if\s+exists)?|insert\s+into|select|update|delete\s+from|with|grant|begin))\b\s*(?P<name>[\w."\x60\[\]]+)?`},
}
