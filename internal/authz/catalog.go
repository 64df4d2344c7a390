package authz

// Permission labels. ADMIN is the universal bypass: holders pass every
// permission and ownership gate.
const (
	PermAdmin = "ADMIN"

	PermCreateAuthor = "CREATE_AUTHOR"
	PermUpdateAuthor = "UPDATE_AUTHOR"
	PermDeleteAuthor = "DELETE_AUTHOR"

	PermCreateBook = "CREATE_BOOK"
	PermUpdateBook = "UPDATE_BOOK"
	PermDeleteBook = "DELETE_BOOK"

	PermCreateGenre = "CREATE_GENRE"
	PermUpdateGenre = "UPDATE_GENRE"
	PermDeleteGenre = "DELETE_GENRE"

	PermManageNotices = "MANAGE_NOTICES"
)

// Permission pairs a label with its seed description.
type Permission struct {
	Label       string
	Description string
}

// Catalog returns every known permission; the seeder persists this list.
func Catalog() []Permission {
	return []Permission{
		{PermAdmin, "Full administrator, bypasses all permission and ownership checks"},
		{PermCreateAuthor, "Can create authors"},
		{PermUpdateAuthor, "Can update authors"},
		{PermDeleteAuthor, "Can delete authors"},
		{PermCreateBook, "Can create books"},
		{PermUpdateBook, "Can update books"},
		{PermDeleteBook, "Can delete books"},
		{PermCreateGenre, "Can create genres"},
		{PermUpdateGenre, "Can update genres"},
		{PermDeleteGenre, "Can delete genres"},
		{PermManageNotices, "Can create, update and delete notices"},
	}
}

type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Rule is the policy for a single write action on a resource kind: open to
// any authenticated caller, gated by a named permission, or reserved for the
// owner/admin path.
type Rule struct {
	Public     bool
	Permission string
}

func publicRule() Rule           { return Rule{Public: true} }
func permRule(label string) Rule { return Rule{Permission: label} }
func ownerRule() Rule            { return Rule{} }

// ResourcePolicy is the static per-kind access policy. OwnershipRequired
// means update/delete resolve through the ownership gate, not a permission.
type ResourcePolicy struct {
	Kind              string
	ReadPublic        bool
	Create            Rule
	Update            Rule
	Delete            Rule
	OwnershipRequired bool
}

var policies = map[string]ResourcePolicy{
	"authors": {
		Kind:       "authors",
		ReadPublic: true,
		Create:     permRule(PermCreateAuthor),
		Update:     permRule(PermUpdateAuthor),
		Delete:     permRule(PermDeleteAuthor),
	},
	"books": {
		Kind:       "books",
		ReadPublic: true,
		Create:     permRule(PermCreateBook),
		Update:     permRule(PermUpdateBook),
		Delete:     permRule(PermDeleteBook),
	},
	"genres": {
		Kind:       "genres",
		ReadPublic: true,
		Create:     permRule(PermCreateGenre),
		Update:     permRule(PermUpdateGenre),
		Delete:     permRule(PermDeleteGenre),
	},
	"notices": {
		Kind:       "notices",
		ReadPublic: true,
		Create:     permRule(PermManageNotices),
		Update:     permRule(PermManageNotices),
		Delete:     permRule(PermManageNotices),
	},
	"libraries": {
		Kind:              "libraries",
		ReadPublic:        false,
		Create:            publicRule(),
		Update:            ownerRule(),
		Delete:            ownerRule(),
		OwnershipRequired: true,
	},
	"reading-lists": {
		Kind:              "reading-lists",
		ReadPublic:        false,
		Create:            publicRule(),
		Update:            ownerRule(),
		Delete:            ownerRule(),
		OwnershipRequired: true,
	},
	"rates": {
		Kind:              "rates",
		ReadPublic:        true,
		Create:            publicRule(),
		Update:            ownerRule(),
		Delete:            ownerRule(),
		OwnershipRequired: true,
	},
	"users": {
		Kind:              "users",
		ReadPublic:        false,
		Create:            ownerRule(),
		Update:            ownerRule(),
		Delete:            ownerRule(),
		OwnershipRequired: true,
	},
}

// PolicyFor returns the static policy for a resource kind.
func PolicyFor(kind string) (ResourcePolicy, bool) {
	p, ok := policies[kind]
	return p, ok
}

func (p ResourcePolicy) RuleFor(action Action) Rule {
	switch action {
	case ActionCreate:
		return p.Create
	case ActionUpdate:
		return p.Update
	case ActionDelete:
		return p.Delete
	default:
		return Rule{}
	}
}
