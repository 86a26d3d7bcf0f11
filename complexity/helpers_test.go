package complexity

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

const starWarsSDL = `
type Query {
  hero(episode: Episode): Character
  droid(id: ID): Droid
  droids(first: Int, count: Int): [Droid!]!
  version: String
  user: User
  search(text: String): [SearchResult]
}

type Mutation {
  rename(id: ID!, name: String!): Droid
}

interface Character {
  name: String!
  appearsIn: [Episode!]!
}

type Droid implements Character {
  id: ID!
  name: String!
  friends(first: Int, count: Int): [Character]
  appearsIn: [Episode!]!
  primaryFunction: String
}

type Human implements Character {
  name: String!
  appearsIn: [Episode!]!
  height: Float
}

union SearchResult = Droid | Human

type User {
  name: String
  email: String
}

enum Episode {
  NEWHOPE
  EMPIRE
  JEDI
}
`

// constEstimator charges the same value for every field and records the
// paths it was asked about.
type constEstimator struct {
	value int
	paths []string
	infos []FieldInfo
}

func (e *constEstimator) FieldComplexity(_ *ast.Field, info FieldInfo, path ast.Path) int {
	e.paths = append(e.paths, path.String())
	e.infos = append(e.infos, info)
	return e.value
}

func testSchema(t *testing.T) *ast.Schema {
	t.Helper()
	return gqlparser.MustLoadSchema(&ast.Source{Name: "starwars.graphql", Input: starWarsSDL})
}

func mustParse(t *testing.T, query string) *ast.QueryDocument {
	t.Helper()
	doc, err := ParseQuery(query)
	require.NoError(t, err)
	return doc
}

func score(t *testing.T, query string, c int, opts ...Option) int {
	t.Helper()
	total, err := Complexity(mustParse(t, query), testSchema(t), &constEstimator{value: c}, opts...)
	require.NoError(t, err)
	return total
}

func tree(t *testing.T, query string, opts ...Option) *Node {
	t.Helper()
	root, err := BuildTree(mustParse(t, query), testSchema(t), &constEstimator{value: 1}, opts...)
	require.NoError(t, err)
	return root
}
