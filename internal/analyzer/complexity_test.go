package analyzer

import (
	"testing"

	"github.com/gilad12-coder/agentic-tdd/internal/testutil"
)

const branchingFunction = `def classify(x):
    if x > 100:
        return "very high"
    elif x > 50:
        return "high"
    elif x > 25:
        return "medium"
    elif x > 10:
        return "low"
    elif x > 0:
        return "very low"
    else:
        return "non-positive"
`

func TestComplexityResult_GetComplexity(t *testing.T) {
	result := &ComplexityResult{Complexity: 10}
	if result.GetComplexity() != 10 {
		t.Errorf("Expected 10, got %d", result.GetComplexity())
	}
}

func TestComplexityResult_GetFunctionName(t *testing.T) {
	result := &ComplexityResult{FunctionName: "testFunc"}
	if result.GetFunctionName() != "testFunc" {
		t.Errorf("Expected 'testFunc', got %s", result.GetFunctionName())
	}
}

func TestComplexityResult_GetDetailedMetrics(t *testing.T) {
	result := &ComplexityResult{
		IfStatements:      2,
		LoopStatements:    1,
		ExceptionHandlers: 1,
		LogicalOperators:  2,
		TernaryOperators:  1,
	}

	metrics := result.GetDetailedMetrics()

	tests := []struct {
		key      string
		expected int
	}{
		{"if_statements", 2},
		{"loop_statements", 1},
		{"exception_handlers", 1},
		{"match_cases", 0},
		{"logical_operators", 2},
		{"ternary_operators", 1},
	}

	for _, tt := range tests {
		if metrics[tt.key] != tt.expected {
			t.Errorf("Expected %s=%d, got %d", tt.key, tt.expected, metrics[tt.key])
		}
	}
}

func TestComplexityResult_String(t *testing.T) {
	result := &ComplexityResult{FunctionName: "f", Complexity: 3}
	if got := result.String(); got != "Function: f, Complexity: 3" {
		t.Errorf("Unexpected String(): %s", got)
	}
}

func TestMaxCyclomaticComplexity(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		expected int
	}{
		{
			name:     "no functions",
			code:     "x = 1\n",
			expected: 1,
		},
		{
			name:     "empty module",
			code:     "",
			expected: 1,
		},
		{
			name:     "straight line",
			code:     "def f():\n    return 1\n",
			expected: 1,
		},
		{
			name:     "elif chain",
			code:     branchingFunction,
			expected: 6,
		},
		{
			name: "loops with else",
			code: `def f(xs):
    for x in xs:
        pass
    else:
        pass
    while True:
        break
`,
			expected: 4,
		},
		{
			name: "try with handlers and else",
			code: `def f():
    try:
        g()
    except ValueError:
        pass
    except KeyError:
        pass
    else:
        pass
    finally:
        pass
`,
			expected: 4,
		},
		{
			name:     "boolean operands",
			code:     "def f(a, b, c):\n    return a and b and c\n",
			expected: 3,
		},
		{
			name:     "mixed boolean operators",
			code:     "def f(a, b, c):\n    return a and b or c\n",
			expected: 3,
		},
		{
			name:     "conditional expression",
			code:     "def f(x):\n    return 1 if x else 2\n",
			expected: 2,
		},
		{
			name:     "comprehension with filters",
			code:     "def f(xs):\n    return [x for x in xs if x if x > 1]\n",
			expected: 4,
		},
		{
			name: "match with wildcard",
			code: `def f(cmd):
    match cmd:
        case "a":
            return 1
        case "b":
            return 2
        case _:
            return 0
`,
			expected: 3,
		},
		{
			name:     "assert",
			code:     "def f(x):\n    assert x\n",
			expected: 2,
		},
		{
			name:     "asserts with message and boolean test",
			code:     "def f(x, y):\n    assert x, 'x required'\n    assert x and y\n    return x\n",
			expected: 4,
		},
		{
			name: "module level branches ignored",
			code: `if True:
    x = 1
def f():
    return 1
`,
			expected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ast := testutil.CreateTestAST(t, tt.code)
			if got := MaxCyclomaticComplexity(ast); got != tt.expected {
				t.Errorf("Expected complexity %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestCalculateFileComplexity_NestedFunctionsScoredSeparately(t *testing.T) {
	code := `def outer(x):
    def inner(y):
        if y:
            return 1
        if y > 2:
            return 2
        return 0
    return inner(x)
`
	ast := testutil.CreateTestAST(t, code)
	results := CalculateFileComplexity(ast)
	if len(results) != 2 {
		t.Fatalf("Expected 2 functions, got %d", len(results))
	}

	byName := map[string]int{}
	for _, r := range results {
		byName[r.FunctionName] = r.Complexity
	}
	if byName["outer"] != 1 {
		t.Errorf("Nested branches must not count toward outer, got %d", byName["outer"])
	}
	if byName["inner"] != 3 {
		t.Errorf("Expected inner complexity 3, got %d", byName["inner"])
	}
	if MaxCyclomaticComplexity(ast) != 3 {
		t.Errorf("Expected max 3, got %d", MaxCyclomaticComplexity(ast))
	}
}

func TestCalculateComplexity_Nil(t *testing.T) {
	if got := CalculateComplexity(nil).Complexity; got != 0 {
		t.Errorf("Expected 0 for nil function, got %d", got)
	}
}

func TestCognitiveComplexity(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		expected int
	}{
		{
			name:     "no functions",
			code:     "x = 1\n",
			expected: 0,
		},
		{
			name:     "elif chain is flat",
			code:     branchingFunction,
			expected: 6,
		},
		{
			name: "nesting increments",
			code: `def deep(x):
    if x > 0:
        for i in range(x):
            if i > 5:
                while True:
                    break
`,
			expected: 11,
		},
		{
			name: "handlers and boolean chains",
			code: `def f(a, b):
    try:
        g()
    except ValueError:
        if a and b:
            return 1
    return 0
`,
			// except +1, if at nesting 1 +2; the condition is not scored
			expected: 3,
		},
		{
			name: "conditional expression in lambda",
			code: `def f(xs):
    return sorted(xs, key=lambda v: v if v else 0)
`,
			expected: 2,
		},
		{
			name: "else branch",
			code: `def f(x):
    if x:
        return 1
    else:
        return 2
`,
			expected: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ast := testutil.CreateTestAST(t, tt.code)
			if got := MaxCognitiveComplexity(ast); got != tt.expected {
				t.Errorf("Expected cognitive complexity %d, got %d", tt.expected, got)
			}
		})
	}
}
