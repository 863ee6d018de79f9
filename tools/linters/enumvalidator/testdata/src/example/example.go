package example

type FlowType string

const (
	FlowTypeLinear    FlowType = "linear"
	FlowTypeBranching FlowType = "branching"
)

type Mood string

const (
	MoodPositive Mood = "positive"
)

type TaskType string

const (
	TaskTypeSweep TaskType = "sweep"
)

type Flow struct {
	FlowType FlowType
}

type Narrative struct {
	Mood Mood
}

type Task struct {
	TaskType TaskType
	Label    string
}

func bad() {
	f := &Flow{}
	f.FlowType = "spiral" // want "enum field FlowType assigned string literal"

	n := &Narrative{}
	n.Mood = "grumpy" // want "enum field Mood assigned string literal"

	_ = Task{TaskType: "sweep"} // want "enum field TaskType assigned string literal"
}

func good() {
	f := &Flow{}
	f.FlowType = FlowTypeBranching // OK: using constant

	_ = Task{TaskType: TaskTypeSweep, Label: "nightly"} // OK: Label is a plain string

	counts := map[FlowType]int{"linear": 1} // OK: map keys are not fields
	_ = counts
}

func alsoGood() {
	// OK: Variable, not literal
	mood := MoodPositive
	n := &Narrative{Mood: mood}
	_ = n
}
