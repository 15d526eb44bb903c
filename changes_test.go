package changetracking_test

import (
	"context"
	"reflect"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	changetracking "github.com/EelisK/gorm-changetracking"
	"github.com/EelisK/gorm-changetracking/shadow"
)

type OrderLine struct {
	OrderID int64  `gorm:"primaryKey;autoIncrement:false"`
	Line    string `gorm:"primaryKey"`
	Qty     int
}

const (
	ctTestChangesJoined = "SELECT [ct].[SYS_CHANGE_VERSION], [ct].[SYS_CHANGE_OPERATION], [ct].[id], [e].[id], [e].[name] " +
		"FROM CHANGETABLE(CHANGES [dbo].[ct_tests], @p1) AS ct " +
		"LEFT OUTER JOIN [dbo].[ct_tests] AS e ON [ct].[id] = [e].[id] " +
		"ORDER BY [ct].[SYS_CHANGE_VERSION]"
	ctTestChangesKeys = "SELECT [ct].[SYS_CHANGE_VERSION], [ct].[SYS_CHANGE_OPERATION], [ct].[id] " +
		"FROM CHANGETABLE(CHANGES [dbo].[ct_tests], @p1) AS ct " +
		"ORDER BY [ct].[SYS_CHANGE_VERSION]"
)

type Note struct {
	Body string
}

// fixedDescriber describes every model with the same descriptor.
type fixedDescriber struct {
	desc *shadow.Descriptor
}

func (d fixedDescriber) Describe(any) (*shadow.Descriptor, error) {
	return d.desc, nil
}

var joinedColumns = []string{"SYS_CHANGE_VERSION", "SYS_CHANGE_OPERATION", "id", "id", "name"}

func (s *trackerSuite) TestGetChangesInsertJoined() {
	s.mock.ExpectQuery(ctTestChangesJoined).
		WithArgs(int64(0)).
		WillReturnRows(sqlmock.NewRows(joinedColumns).AddRow(int64(1), "I", int64(1), int64(1), "123"))

	changes, err := changetracking.GetChanges[CtTest](s.tr, 0)
	s.Require().NoError(err)
	s.Require().Len(changes, 1)

	c := changes[0]
	s.Equal(changetracking.Insert, c.Kind)
	s.EqualValues(1, c.Version)
	s.True(c.IsFullLoaded())
	s.Equal(CtTest{Id: 1, Name: "123"}, c.Entity)
	s.Equal(1, c.Shadow.Key("Id"))
}

func (s *trackerSuite) TestGetChangesInsertKeysOnly() {
	s.mock.ExpectQuery(ctTestChangesKeys).
		WithArgs(int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"SYS_CHANGE_VERSION", "SYS_CHANGE_OPERATION", "id"}).
			AddRow(int64(1), "I", int64(1)))

	changes, err := changetracking.GetChanges[CtTest](s.tr, 0, changetracking.KeysOnly())
	s.Require().NoError(err)
	s.Require().Len(changes, 1)

	c := changes[0]
	s.Equal(changetracking.Insert, c.Kind)
	s.False(c.IsFullLoaded())
	s.Equal(CtTest{Id: 1}, c.Entity)
}

func (s *trackerSuite) TestGetChangesDelete() {
	s.mock.ExpectQuery(ctTestChangesJoined).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(joinedColumns).AddRow(int64(6), "D", int64(1), nil, nil))
	s.mock.ExpectQuery(ctTestChangesKeys).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"SYS_CHANGE_VERSION", "SYS_CHANGE_OPERATION", "id"}).
			AddRow(int64(6), "D", int64(1)))

	for _, opts := range [][]changetracking.ChangesOption{nil, {changetracking.KeysOnly()}} {
		changes, err := changetracking.GetChanges[CtTest](s.tr, 5, opts...)
		s.Require().NoError(err)
		s.Require().Len(changes, 1)

		c := changes[0]
		s.Equal(changetracking.Delete, c.Kind)
		s.EqualValues(6, c.Version)
		s.False(c.IsFullLoaded())
		s.Equal(CtTest{Id: 1}, c.Entity)
	}
}

func (s *trackerSuite) TestGetChangesJoinMissingFallsBackToKeys() {
	s.mock.ExpectQuery(ctTestChangesJoined).
		WithArgs(int64(0)).
		WillReturnRows(sqlmock.NewRows(joinedColumns).
			AddRow(int64(1), "I", int64(1), nil, nil).
			AddRow(int64(2), "U", int64(2), int64(2), "b"))

	changes, err := changetracking.GetChanges[CtTest](s.tr, 0)
	s.Require().NoError(err)
	s.Require().Len(changes, 2)

	s.False(changes[0].IsFullLoaded())
	s.Equal(CtTest{Id: 1}, changes[0].Entity)
	s.True(changes[1].IsFullLoaded())
	s.Equal(changetracking.Update, changes[1].Kind)
	s.Equal(CtTest{Id: 2, Name: "b"}, changes[1].Entity)
}

func (s *trackerSuite) TestGetChangesCompositeKey() {
	query := "SELECT [ct].[SYS_CHANGE_VERSION], [ct].[SYS_CHANGE_OPERATION], [ct].[order_id], [ct].[line], " +
		"[e].[order_id], [e].[line], [e].[qty] " +
		"FROM CHANGETABLE(CHANGES [dbo].[order_lines], @p1) AS ct " +
		"LEFT OUTER JOIN [dbo].[order_lines] AS e ON [ct].[order_id] = [e].[order_id] AND [ct].[line] = [e].[line] " +
		"ORDER BY [ct].[SYS_CHANGE_VERSION]"
	s.mock.ExpectQuery(query).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{
			"SYS_CHANGE_VERSION", "SYS_CHANGE_OPERATION", "order_id", "line", "order_id", "line", "qty",
		}).
			AddRow(int64(10), "U", int64(3), "a", int64(3), "a", int64(4)).
			AddRow(int64(11), "D", int64(3), "b", nil, nil, nil))

	changes, err := changetracking.GetChangesContext[OrderLine](context.Background(), s.tr, 9)
	s.Require().NoError(err)
	s.Require().Len(changes, 2)

	s.Equal(OrderLine{OrderID: 3, Line: "a", Qty: 4}, changes[0].Entity)
	s.True(changes[0].IsFullLoaded())
	s.Equal(OrderLine{OrderID: 3, Line: "b"}, changes[1].Entity)
	s.Equal(changetracking.Delete, changes[1].Kind)
}

func (s *trackerSuite) TestGetChangesRejectsNonStruct() {
	_, err := changetracking.GetChanges[*CtTest](s.tr, 0)
	s.True(changetracking.ConfigError.Has(err))
}

func (s *trackerSuite) TestGetChangesRejectsModelWithoutKey() {
	_, err := changetracking.GetChanges[Note](s.tr, 0)
	s.Require().Error(err)
	s.True(changetracking.ConfigError.Has(err))
}

func (s *trackerSuite) TestGetChangesUntypedDescriberColumns() {
	tr := changetracking.New(s.db, changetracking.Config{
		Database:  "Linq2dbTests",
		Describer: fixedDescriber{desc: &shadow.Descriptor{
			Type:  reflect.TypeOf(CtTest{}),
			Table: "ct_tests",
			Columns: []shadow.Column{
				{Name: "Id", DBName: "id", PrimaryKey: true},
				{Name: "Name", DBName: "name"},
			},
		}},
	})
	s.mock.ExpectQuery(ctTestChangesJoined).
		WithArgs(int64(0)).
		WillReturnRows(sqlmock.NewRows(joinedColumns).AddRow(int64(1), "U", int64(1), int64(1), "n"))

	changes, err := changetracking.GetChanges[CtTest](tr, 0)
	s.Require().NoError(err)
	s.Require().Len(changes, 1)
	s.True(changes[0].IsFullLoaded())
	s.Equal(CtTest{Id: 1, Name: "n"}, changes[0].Entity)
}

func (s *trackerSuite) TestGetChangesRejectsDescriptorOfOtherType() {
	tr := changetracking.New(s.db, changetracking.Config{
		Database:  "Linq2dbTests",
		Describer: fixedDescriber{desc: &shadow.Descriptor{
			Type:    reflect.TypeOf(OrderLine{}),
			Table:   "order_lines",
			Columns: []shadow.Column{{Name: "OrderID", DBName: "order_id", PrimaryKey: true}},
		}},
	})

	_, err := changetracking.GetChanges[CtTest](tr, 0)
	s.Require().Error(err)
	s.True(changetracking.ConfigError.Has(err))
}
