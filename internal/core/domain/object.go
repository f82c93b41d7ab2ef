package domain

// Object is a metadata entity describing a device or channel.
type Object struct {
	ID     string         `json:"_id"`
	Type   string         `json:"type"`
	Common ObjectCommon   `json:"common"`
	Native map[string]any `json:"native,omitempty"`
}

type ObjectCommon struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// ObjectPatch is merged into an existing Object. Only non-nil fields are applied.
type ObjectPatch struct {
	Name *string
}

func NamePatch(name string) ObjectPatch {
	return ObjectPatch{Name: &name}
}

// Apply returns a copy of obj with the patch merged in.
func (p ObjectPatch) Apply(obj Object) Object {
	if p.Name != nil {
		obj.Common.Name = *p.Name
	}
	return obj
}
