package types

// Trigger is the closed set of rule triggers.
type Trigger interface {
	TriggerKind() string
	isTrigger()
}

// Condition is the closed set of rule conditions.
type Condition interface {
	ConditionKind() string
	isCondition()
}

// Action is the closed set of rule actions.
type Action interface {
	ActionKind() string
	isAction()
}

// Command is the closed set of side-effect requests emitted for the host.
type Command interface {
	CommandKind() string
	isCommand()
}

// CompareOperator is a Compare condition operator.
type CompareOperator string

const (
	OpEquals         CompareOperator = "Equals"
	OpNotEquals      CompareOperator = "NotEquals"
	OpGreaterThan    CompareOperator = "GreaterThan"
	OpLessThan       CompareOperator = "LessThan"
	OpGreaterOrEqual CompareOperator = "GreaterOrEqual"
	OpLessOrEqual    CompareOperator = "LessOrEqual"
)

// Input axes reported in TickInput.Axes.
const (
	AxisHorizontal = "Horizontal"
	AxisVertical   = "Vertical"
)

// DefaultAxisThreshold applies when OnAxis.Threshold is zero.
const DefaultAxisThreshold = 0.1

// --- Triggers ---

// OnKeyDown fires when Key is pressed this tick.
type OnKeyDown struct{ Key string }

// OnKeyUp fires when Key is released this tick.
type OnKeyUp struct{ Key string }

// OnClick fires on a mouse button press (0 left, 1 middle, 2 right).
type OnClick struct{ Button int }

// OnAxis fires every tick the named axis deflects at least Threshold in
// either direction.
type OnAxis struct {
	Axis      string
	Threshold float64
}

// OnCollision fires when the owner starts touching an entity tagged WithTag
// (any entity when empty).
type OnCollision struct{ WithTag string }

// OnCollisionExit fires when such a contact ends.
type OnCollisionExit struct{ WithTag string }

// OnTriggerEnter fires when the owner enters a pass-through trigger area
// tagged WithTag.
type OnTriggerEnter struct{ WithTag string }

// OnEventSignal fires in the tick a signal becomes visible.
type OnEventSignal struct{ Signal string }

// OnTick fires every tick.
type OnTick struct{}

// OnStart fires once, on the first tick after registration.
type OnStart struct{}

// OnTimer fires each time IntervalMs of scene time has elapsed; once
// unless Repeat.
type OnTimer struct {
	IntervalMs float64
	Repeat     bool
}

// OnDestroy fires in the tick the host reports the owner destroyed.
type OnDestroy struct{}

func (OnKeyDown) TriggerKind() string       { return "OnKeyDown" }
func (OnKeyUp) TriggerKind() string         { return "OnKeyUp" }
func (OnClick) TriggerKind() string         { return "OnClick" }
func (OnAxis) TriggerKind() string          { return "OnAxis" }
func (OnCollision) TriggerKind() string     { return "OnCollision" }
func (OnCollisionExit) TriggerKind() string { return "OnCollisionExit" }
func (OnTriggerEnter) TriggerKind() string  { return "OnTriggerEnter" }
func (OnEventSignal) TriggerKind() string   { return "OnEventSignal" }
func (OnTick) TriggerKind() string          { return "OnTick" }
func (OnStart) TriggerKind() string         { return "OnStart" }
func (OnTimer) TriggerKind() string         { return "OnTimer" }
func (OnDestroy) TriggerKind() string       { return "OnDestroy" }

func (OnKeyDown) isTrigger()       {}
func (OnKeyUp) isTrigger()         {}
func (OnClick) isTrigger()         {}
func (OnAxis) isTrigger()          {}
func (OnCollision) isTrigger()     {}
func (OnCollisionExit) isTrigger() {}
func (OnTriggerEnter) isTrigger()  {}
func (OnEventSignal) isTrigger()   {}
func (OnTick) isTrigger()          {}
func (OnStart) isTrigger()         {}
func (OnTimer) isTrigger()         {}
func (OnDestroy) isTrigger()       {}

// --- Conditions ---

// Compare tests a variable against a literal. An empty EntityID means self.
type Compare struct {
	Variable string
	Operator CompareOperator
	Value    any
	Scope    Scope
	EntityID string
}

// IsGrounded passes when the entity is standing on ground.
type IsGrounded struct{ EntityID string }

// RaycastHit casts a ray from self along (DX, DY) and passes when it meets
// the bounds of another active entity tagged WithTag within Distance.
type RaycastHit struct {
	DX, DY   float64
	Distance float64
	WithTag  string
}

// HasVariable passes when the variable exists in the scope.
type HasVariable struct {
	Variable string
	Scope    Scope
	EntityID string
}

// HasTag passes when the entity carries Tag.
type HasTag struct {
	Tag      string
	EntityID string
}

// IsActive passes when the entity's active flag equals Expected.
type IsActive struct {
	EntityID string
	Expected bool
}

// CooldownReady passes when the cooldown is not running. "@self" and
// "@other" inside the id are replaced by the entity ids.
type CooldownReady struct{ CooldownID string }

// Not negates Inner.
type Not struct{ Inner Condition }

func (Compare) ConditionKind() string       { return "Compare" }
func (IsGrounded) ConditionKind() string    { return "IsGrounded" }
func (RaycastHit) ConditionKind() string    { return "RaycastHit" }
func (HasVariable) ConditionKind() string   { return "HasVariable" }
func (HasTag) ConditionKind() string        { return "HasTag" }
func (IsActive) ConditionKind() string      { return "IsActive" }
func (CooldownReady) ConditionKind() string { return "CooldownReady" }
func (Not) ConditionKind() string           { return "Not" }

func (Compare) isCondition()       {}
func (IsGrounded) isCondition()    {}
func (RaycastHit) isCondition()    {}
func (HasVariable) isCondition()   {}
func (HasTag) isCondition()        {}
func (IsActive) isCondition()      {}
func (CooldownReady) isCondition() {}
func (Not) isCondition()           {}

// --- Actions ---

// Set writes Value, creating the variable when missing.
type Set struct {
	Variable string
	Value    any
	Scope    Scope
	EntityID string
}

// Add increases a float variable by Amount. When AmountVar is set the
// amount is read from that variable on self instead.
type Add struct {
	Variable  string
	Amount    float64
	AmountVar string
	Scope     Scope
	EntityID  string
}

// Subtract decreases a float variable, with the same amount rules as Add.
type Subtract struct {
	Variable  string
	Amount    float64
	AmountVar string
	Scope     Scope
	EntityID  string
}

// Move requests movement along (DX, DY) at Speed.
type Move struct {
	EntityID string
	DX, DY   float64
	Speed    float64
}

// ApplyForce requests an impulse.
type ApplyForce struct {
	EntityID string
	FX, FY   float64
}

// SetVelocity requests a velocity override.
type SetVelocity struct {
	EntityID string
	VX, VY   float64
}

// Teleport requests an instant position change.
type Teleport struct {
	EntityID string
	X, Y     float64
	Relative bool
}

// Spawn requests an instance of a host entity template. X/Y are relative
// to EntityID when it is set, otherwise absolute.
type Spawn struct {
	TemplateID string
	X, Y       float64
	EntityID   string
	UsePool    bool
	PoolSize   int
}

// Choice is one selectable dialog answer; selecting it posts Signal.
type Choice struct {
	Text   string
	Signal string
}

// ShowDialog requests a dialog box.
type ShowDialog struct {
	DialogID string
	Speaker  string
	Portrait string
	Choices  []Choice
}

// PlayAnimation requests a sprite animation on the entity.
type PlayAnimation struct {
	EntityID  string
	Animation string
	Loop      bool
}

// SetSprite requests a sprite swap.
type SetSprite struct {
	EntityID  string
	SpriteKey string
}

// SetMaterial requests a material swap.
type SetMaterial struct {
	EntityID   string
	MaterialID string
}

// Scene transitions.
const (
	TransitionNone  = "None"
	TransitionFade  = "Fade"
	TransitionSlide = "Slide"
)

// LoadScene asks the host to switch scenes, passing Data along.
type LoadScene struct {
	SceneName  string
	Transition string
	Data       map[string]any
}

// EmitSignal posts a signal, visible next tick.
type EmitSignal struct{ Signal string }

// StartCooldown starts (or restarts) a cooldown. The id expands like
// CooldownReady's; DurationVar reads the duration from a variable on self.
type StartCooldown struct {
	CooldownID  string
	DurationMs  float64
	DurationVar string
}

// SetActive requests an active-flag change.
type SetActive struct {
	EntityID string
	Active   bool
}

// Destroy requests entity removal, after DelayMs when positive.
type Destroy struct {
	EntityID string
	DelayMs  float64
}

// PlayEffect positions the effect relative to EntityID when it resolves,
// otherwise X/Y are absolute world coordinates.
type PlayEffect struct {
	PresetID string
	X, Y     float64
	Scale    float64
	EntityID string
}

// PlaySound requests a sound.
type PlaySound struct {
	SoundID string
	Volume  float64
	Loop    bool
}

// StopSound stops a playing sound.
type StopSound struct{ SoundID string }

func (Set) ActionKind() string           { return "Set" }
func (Add) ActionKind() string           { return "Add" }
func (Subtract) ActionKind() string      { return "Subtract" }
func (Move) ActionKind() string          { return "Move" }
func (ApplyForce) ActionKind() string    { return "ApplyForce" }
func (SetVelocity) ActionKind() string   { return "SetVelocity" }
func (Teleport) ActionKind() string      { return "Teleport" }
func (Spawn) ActionKind() string         { return "Spawn" }
func (ShowDialog) ActionKind() string    { return "ShowDialog" }
func (PlayAnimation) ActionKind() string { return "PlayAnimation" }
func (SetSprite) ActionKind() string     { return "SetSprite" }
func (SetMaterial) ActionKind() string   { return "SetMaterial" }
func (LoadScene) ActionKind() string     { return "LoadScene" }
func (EmitSignal) ActionKind() string    { return "EmitSignal" }
func (StartCooldown) ActionKind() string { return "StartCooldown" }
func (SetActive) ActionKind() string     { return "SetActive" }
func (Destroy) ActionKind() string       { return "Destroy" }
func (PlayEffect) ActionKind() string    { return "PlayEffect" }
func (PlaySound) ActionKind() string     { return "PlaySound" }
func (StopSound) ActionKind() string     { return "StopSound" }

func (Set) isAction()           {}
func (Add) isAction()           {}
func (Subtract) isAction()      {}
func (Move) isAction()          {}
func (ApplyForce) isAction()    {}
func (SetVelocity) isAction()   {}
func (Teleport) isAction()      {}
func (Spawn) isAction()         {}
func (ShowDialog) isAction()    {}
func (PlayAnimation) isAction() {}
func (SetSprite) isAction()     {}
func (SetMaterial) isAction()   {}
func (LoadScene) isAction()     {}
func (EmitSignal) isAction()    {}
func (StartCooldown) isAction() {}
func (SetActive) isAction()     {}
func (Destroy) isAction()       {}
func (PlayEffect) isAction()    {}
func (PlaySound) isAction()     {}
func (StopSound) isAction()     {}

// --- Commands ---

// Physics command kinds.
const (
	PhysicsMove     = "move"
	PhysicsForce    = "force"
	PhysicsVelocity = "velocity"
	PhysicsTeleport = "teleport"
)

// PhysicsCommand is a movement intent for the host physics layer.
type PhysicsCommand struct {
	Kind      string
	EntityID  string
	DX, DY    float64
	Magnitude float64
}

// SpawnCommand asks the host to instantiate a template at (X, Y).
type SpawnCommand struct {
	TemplateID string
	X, Y       float64
	UsePool    bool
	PoolSize   int
}

// DialogCommand asks the host to open a dialog box.
type DialogCommand struct {
	DialogID string
	Speaker  string
	Portrait string
	Choices  []Choice
}

// Render command kinds.
const (
	RenderAnimation = "animation"
	RenderSprite    = "sprite"
	RenderMaterial  = "material"
)

// RenderCommand asks the host renderer to change how an entity looks. Key is
// the animation name, sprite key or material id depending on Kind.
type RenderCommand struct {
	Kind     string
	EntityID string
	Key      string
	Loop     bool
}

// SceneCommand asks the host to load another scene.
type SceneCommand struct {
	SceneName  string
	Transition string
	Data       map[string]any
}

// EffectCommand asks the host to play a visual effect at world (X, Y).
type EffectCommand struct {
	PresetID string
	X, Y     float64
	Scale    float64
}

// SoundCommand asks the host to play a sound, or stop it when Stop is set.
type SoundCommand struct {
	SoundID string
	Volume  float64
	Loop    bool
	Stop    bool
}

// Lifecycle command kinds.
const (
	LifecycleSetActive = "set_active"
	LifecycleDestroy   = "destroy"
)

// LifecycleCommand asks the host to toggle or remove an entity.
type LifecycleCommand struct {
	Kind     string
	EntityID string
	Active   bool
	DelayMs  float64
}

func (PhysicsCommand) CommandKind() string   { return "physics" }
func (SpawnCommand) CommandKind() string     { return "spawn" }
func (DialogCommand) CommandKind() string    { return "dialog" }
func (RenderCommand) CommandKind() string    { return "render" }
func (SceneCommand) CommandKind() string     { return "scene" }
func (EffectCommand) CommandKind() string    { return "effect" }
func (SoundCommand) CommandKind() string     { return "sound" }
func (LifecycleCommand) CommandKind() string { return "lifecycle" }

func (PhysicsCommand) isCommand()   {}
func (SpawnCommand) isCommand()     {}
func (DialogCommand) isCommand()    {}
func (RenderCommand) isCommand()    {}
func (SceneCommand) isCommand()     {}
func (EffectCommand) isCommand()    {}
func (SoundCommand) isCommand()     {}
func (LifecycleCommand) isCommand() {}
