package user

// Transition — пара ролей "из" и "в".
type Transition struct {
	From Role
	To   Role
}

// TransitionKind определяет, какие побочные эффекты несёт смена роли.
type TransitionKind int

const (
	// TransitionKeep — роль не меняется, меняются только имя/email.
	TransitionKeep TransitionKind = iota + 1
	// TransitionEnrollClient — usuario становится клиентом, создаётся профиль клиента.
	TransitionEnrollClient
	// TransitionChangePlan — клиент остаётся клиентом, возможна смена плана.
	TransitionChangePlan
	// TransitionLeaveClient — клиент теряет статус: проверка резерваций,
	// деактивация назначений тренера, удаление профиля.
	TransitionLeaveClient
	// TransitionStaff — переход между ролями без профиля клиента.
	TransitionStaff
)

var transitions = map[Transition]TransitionKind{
	{RoleUsuario, RoleUsuario}:       TransitionKeep,
	{RoleUsuario, RoleCliente}:       TransitionEnrollClient,
	{RoleUsuario, RoleEntrenador}:    TransitionStaff,
	{RoleUsuario, RoleAdmin}:         TransitionStaff,
	{RoleCliente, RoleCliente}:       TransitionChangePlan,
	{RoleCliente, RoleUsuario}:       TransitionLeaveClient,
	{RoleCliente, RoleEntrenador}:    TransitionLeaveClient,
	{RoleCliente, RoleAdmin}:         TransitionLeaveClient,
	{RoleEntrenador, RoleEntrenador}: TransitionKeep,
	{RoleEntrenador, RoleUsuario}:    TransitionStaff,
	{RoleEntrenador, RoleAdmin}:      TransitionStaff,
	{RoleAdmin, RoleAdmin}:           TransitionKeep,
	{RoleAdmin, RoleUsuario}:         TransitionStaff,
	{RoleAdmin, RoleEntrenador}:      TransitionStaff,
}

// TransitionFor возвращает вид перехода from → to и false, если переход запрещён.
//
// Персонал не может стать клиентом напрямую: сначала роль понижается до usuario,
// затем оформляется план.
func TransitionFor(from, to Role) (TransitionKind, bool) {
	kind, ok := transitions[Transition{From: from, To: to}]
	return kind, ok
}

// CanTransition сообщает, разрешён ли переход from → to.
func CanTransition(from, to Role) bool {
	_, ok := TransitionFor(from, to)
	return ok
}
