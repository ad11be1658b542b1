package pantry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// PantryTestSuite provides a test suite for Pantry
type PantryTestSuite struct {
	suite.Suite
	pantry *Pantry
}

func (s *PantryTestSuite) SetupTest() {
	s.pantry = New()
}

func (s *PantryTestSuite) TestAdd() {
	s.Run("ValidName_ShouldAppend", func() {
		s.SetupTest()

		added := s.pantry.Add("egg")

		assert.True(s.T(), added)
		assert.Equal(s.T(), []string{"egg"}, s.pantry.Entries())
	})

	s.Run("NameIsTrimmed", func() {
		s.SetupTest()

		s.pantry.Add("  flour \t")

		assert.Equal(s.T(), []string{"flour"}, s.pantry.Entries())
	})

	s.Run("BlankName_ShouldBeNoOp", func() {
		s.SetupTest()

		assert.False(s.T(), s.pantry.Add(""))
		assert.False(s.T(), s.pantry.Add("   "))
		assert.True(s.T(), s.pantry.IsEmpty())
	})

	s.Run("Duplicate_ShouldBeNoOp", func() {
		s.SetupTest()

		require.True(s.T(), s.pantry.Add("egg"))
		assert.False(s.T(), s.pantry.Add("egg"))
		assert.False(s.T(), s.pantry.Add(" egg "))

		assert.Equal(s.T(), []string{"egg"}, s.pantry.Entries())
	})

	s.Run("DifferentCase_IsDistinct", func() {
		s.SetupTest()

		s.pantry.Add("egg")
		s.pantry.Add("Egg")

		assert.Equal(s.T(), []string{"egg", "Egg"}, s.pantry.Entries())
	})

	s.Run("InsertionOrderPreserved", func() {
		s.SetupTest()

		n := s.pantry.AddAll([]string{"tomato", "basil", "tomato", "", "garlic"})

		assert.Equal(s.T(), 3, n)
		assert.Equal(s.T(), []string{"tomato", "basil", "garlic"}, s.pantry.Entries())
	})
}

func (s *PantryTestSuite) TestRemove() {
	s.Run("Present_ShouldRemove", func() {
		s.pantry = New("egg", "flour", "milk")

		removed := s.pantry.Remove("flour")

		assert.True(s.T(), removed)
		assert.Equal(s.T(), []string{"egg", "milk"}, s.pantry.Entries())
	})

	s.Run("Absent_ShouldBeNoOp", func() {
		s.pantry = New("egg", "flour")
		before := s.pantry.Entries()

		removed := s.pantry.Remove("butter")

		assert.False(s.T(), removed)
		assert.Equal(s.T(), before, s.pantry.Entries())
	})

	s.Run("EmptyPantry_ShouldBeNoOp", func() {
		s.SetupTest()

		assert.False(s.T(), s.pantry.Remove("egg"))
		assert.Equal(s.T(), 0, s.pantry.Len())
	})
}

func (s *PantryTestSuite) TestEntriesIsACopy() {
	s.pantry = New("egg")

	entries := s.pantry.Entries()
	entries[0] = "changed"

	assert.Equal(s.T(), []string{"egg"}, s.pantry.Entries())
}

func TestPantryTestSuite(t *testing.T) {
	suite.Run(t, new(PantryTestSuite))
}

func TestAddTwiceYieldsOneEntry(t *testing.T) {
	for _, name := range []string{"a", "egg", "olive oil", "  padded  ", "Ñame"} {
		p := New()
		p.Add(name)
		p.Add(name)

		require.Equal(t, 1, p.Len(), name)
		assert.Equal(t, Normalize(name), p.Entries()[0])
	}
}
