package world

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validRealmYAML = `
realm:
  id: marches
  name: "The Marches"
  regions:
    - id: north
      name: "Northwatch"
      fort_level: 2
      fort_hp: 1500
      garrison_swords: 40
      garrison_armor: 100
    - id: south
      name: "Southfold"
      fort_level: 1
      fort_hp: 800
      morale: 60
`

func TestLoadRealmFromBytes_Valid(t *testing.T) {
	realm, err := LoadRealmFromBytes([]byte(validRealmYAML))
	require.NoError(t, err)

	assert.Equal(t, "marches", realm.ID)
	require.Len(t, realm.Regions, 2)
	north := realm.Regions[0]
	assert.Equal(t, "Northwatch", north.Name)
	assert.Equal(t, Fortification{HP: 1500, MaxHP: 1500, Level: 2}, north.Fortification)
	assert.Equal(t, Garrison{Swords: 40, Armor: 100, Morale: 100}, north.Garrison)
	assert.Equal(t, 60, realm.Regions[1].Garrison.Morale)
	assert.Nil(t, north.Siege)
}

func TestLoadRealmFromBytes_Invalid(t *testing.T) {
	cases := map[string]string{
		"empty id":     "realm:\n  regions:\n    - {id: a, name: A, fort_level: 1, fort_hp: 1}\n",
		"no regions":   "realm:\n  id: r\n",
		"duplicate":    "realm:\n  id: r\n  regions:\n    - {id: a, name: A, fort_level: 1, fort_hp: 1}\n    - {id: a, name: B, fort_level: 1, fort_hp: 1}\n",
		"no fort":      "realm:\n  id: r\n  regions:\n    - {id: a, name: A, fort_level: 0, fort_hp: 1}\n",
		"bad yaml":     "realm: [",
		"missing name": "realm:\n  id: r\n  regions:\n    - {id: a, fort_level: 1, fort_hp: 1}\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadRealmFromBytes([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadRealmsFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marches.yaml"), []byte(validRealmYAML), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	realms, err := LoadRealmsFromDir(dir)
	require.NoError(t, err)
	require.Len(t, realms, 1)
	assert.Equal(t, "marches", realms[0].ID)
}

func TestLoadRealmsFromDir_Empty(t *testing.T) {
	_, err := LoadRealmsFromDir(t.TempDir())
	assert.Error(t, err)
}
