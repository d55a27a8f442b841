package keyword

// AITerms signal that a paper is about AI, language models, or agents.
var AITerms = []string{
	// concepts and mechanisms
	"large language model", "language model", "llm", "plm",
	"foundation model", "pretrained model", "pre-trained model",
	"transformer", "self-attention", "decoder-only", "encoder-decoder",
	"autoregressive", "generative model", "inference",
	"fine-tuning", "finetuning", "instruction tuning", "prompt", "prompting",
	"prompt tuning", "rlhf", "dpo", "sft", "alignment",
	"tool use", "tool-use", "tool calling", "function calling",
	"retrieval-augmented generation", "rag",
	"agent", "multi-agent", "autonomous agent", "agentic workflow",
	"few-shot", "zero-shot", "in-context learning", "icl",
	"distillation", "quantization", "kv cache", "speculative decoding",
	"mixture of experts", "moe",
	// model families
	"gpt-4", "gpt4", "gpt-3.5", "gpt-3", "codex",
	"gemini", "palm", "claude",
	"llama", "llama 2", "llama 3", "llama-3", "mistral", "mixtral",
	"phi", "orion",
	"qwen", "glm", "chatglm", "deepseek", "baichuan", "yuan",
}

// CodingAnchors signal the software and programming ecosystem.
var CodingAnchors = []string{
	"source code", "codebase", "program", "software", "repository",
	"developer", "ide", "editor", "compiler", "debugger", "build system",
	"api", "sdk", "function", "method", "class", "module", "package",
	"dependency", "import", "namespace",
	"unit test", "test case", "coverage", "test suite", "assertion",
	"static analysis", "dynamic analysis", "symbolic execution",
	"fuzzing", "taint", "control flow", "data flow", "call graph", "points-to",
	"ast", "ir", "bytecode", "llvm", "wasm", "cfg", "dfg",
	"git", "github", "gitlab", "commit", "pull request", "merge request",
	"issue tracker", "ci/cd", "continuous integration", "continuous delivery",
	"repository mining", "program analysis", "software engineering",
	"build pipeline", "monorepo", "diff", "patch",
}

// CodeTaskSignals are common phrasings of coding tasks.
var CodeTaskSignals = []string{
	// generation
	"code generation", "generate code", "program synthesis", "nl2code", "nl to code", "text-to-code",
	// translation
	"code translation", "transpilation", "transpiler", "cross-language translation",
	"source-to-source translation", "transcompiler",
	// repair
	"code repair", "program repair", "automated program repair", "apr",
	"patch generation", "bug fix generation", "fix suggestion",
	// understanding
	"code understanding", "code comprehension", "code summarization", "explain code",
	"intent inference", "behavior summarization",
	// optimization
	"code optimization", "performance optimization", "speedup", "latency reduction",
	"resource optimization", "memory optimization", "refactor for performance",
	// tests
	"test generation", "unit test generation", "test case generation", "test synthesis",
	"assertion generation", "property-based testing",
	// completion
	"code completion", "auto-completion", "autocomplete", "fill-in-the-middle", "fim",
	"project-aware completion", "repo-aware completion", "ide completion",
	// suggestion
	"code recommendation", "coding recommendation", "lint suggestion",
	"style suggestion", "refactoring suggestion", "best practice suggestion",
	// requirements
	"requirement to code", "spec to code", "natural language requirement to design",
	"task decomposition for coding", "api design from requirements",
	// fault localization
	"fault localization", "bug localization", "defect localization", "sbfl",
	"spectrum-based fault localization", "localize bug",
	// commit messages
	"commit message generation", "commit message suggestion", "changelog generation",
	// question answering
	"code question answering", "programming qa", "api question answering",
	"stack overflow style qa", "debugging qa",
	// counterexamples
	"counterexample generation", "poc workflow", "proof-of-concept workflow",
	"bug reproduction steps", "reproduction steps", "adversarial example for code",
	// data science
	"notebook automation", "data wrangling", "data cleaning", "feature engineering",
	"pandas script", "numpy script", "plot generation", "sql query generation",
	// error identification
	"bug detection", "fault detection", "error identification", "defect detection",
	"linting", "bug classifier", "static bug finder", "security smell detection",
	// search
	"code search", "semantic code search", "code retrieval", "function search", "api search",
}

// CodeModelNames are code-specialized model families. They count as both
// AI and coding signals.
var CodeModelNames = []string{
	"code llama", "code-llama", "starcoder", "santacoder", "wizardcoder",
	"replit", "incoder", "codet5", "codegeex", "starchat",
	"deepseek-coder", "qwen-coder", "qwen2.5-coder", "octocoder",
}
