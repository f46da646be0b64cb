package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePath(t *testing.T) {
	tests := []struct {
		path  string
		valid bool
	}{
		{"/", true},
		{"/World", true},
		{"/World/Cube_01", true},
		{"/_hidden", true},
		{"", false},
		{"World", false},
		{"/World/", false},
		{"//World", false},
		{"/World/1st", false},
		{"/World/has space", false},
		{"/World/../Etc", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			err := ValidatePath(tt.path)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidPath)
			}
		})
	}
}

func TestPathHelpers(t *testing.T) {
	assert.Equal(t, "/", Parent("/World"))
	assert.Equal(t, "/World", Parent("/World/Cube"))
	assert.Equal(t, "Cube", Base("/World/Cube"))
	assert.Equal(t, "", Base("/"))
	assert.Equal(t, "/World", Join("/", "World"))
	assert.Equal(t, "/World/Cube", Join("/World", "Cube"))
	assert.Equal(t, []string{"/A", "/A/B"}, Ancestors("/A/B/C"))
	assert.Nil(t, Ancestors("/A"))

	assert.True(t, IsDescendant("/World/Cube", "/World"))
	assert.True(t, IsDescendant("/World", "/World"))
	assert.True(t, IsDescendant("/Other", "/"))
	assert.False(t, IsDescendant("/WorldX", "/World"))
}

func TestPrimLookups(t *testing.T) {
	p := Prim{
		Path:          "/World/Ball",
		Attributes:    []Attribute{{Name: "radius", TypeName: "double", Value: 0.5}},
		APISchemas:    []string{"PhysicsRigidBodyAPI"},
		Relationships: []Relationship{{Name: "material:binding", Targets: []string{"/Looks/Red"}}},
	}

	assert.Equal(t, "Ball", p.Name())

	attr, ok := p.Attribute("radius")
	assert.True(t, ok)
	assert.Equal(t, 0.5, attr.Value)

	_, ok = p.Attribute("height")
	assert.False(t, ok)

	assert.True(t, p.HasAPI("PhysicsRigidBodyAPI"))
	assert.False(t, p.HasAPI("PhysicsCollisionAPI"))

	rel, ok := p.Relationship("material:binding")
	assert.True(t, ok)
	assert.Equal(t, []string{"/Looks/Red"}, rel.Targets)
}
