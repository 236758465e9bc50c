/*
Package xrecord maps Go structs onto SQL Server style tables over
database/sql. It generates the CRUD statements for a type, binds their
parameters, and materializes result rows back into typed values.

# Tables

Every mapped type has a static descriptor table: a factory plus one
getter/setter pair per member. Declare it with struct tags,

	type Customer struct {
	    CustomerId int32      `db:",pk,identity"`
	    Name       string
	    Email      *string    // nullable
	    Created    time.Time  `db:",default"`
	    Orders     int32      `db:",notintable"`
	}

	var customers = xrecord.MustTable(xrecord.TableOf[Customer]())

with the builder API (NewTable, Col, NullCol, Accessor), or generate it
with cmd/xrecordgen, which emits builder code and needs no reflection at
run time. Role markers can be overridden from a YAML schema file (see Schema).

# Mapping rules

  - Supported member types: bool, uint8, []byte, time.Time, decimal.Decimal,
    float64, uuid.UUID, int16, int32, int64, any, string. A pointer makes
    the member nullable. Anything else is rejected when the table is built.
  - Columns bind to members by case-insensitive name. Extra columns are
    ignored; members without a column keep their zero value.
  - Raw values are coerced with ChangeType: "42" reads into an int32 and an
    int64 out of range for an int16 fails.
  - A null into a nullable member stores nil; into a string, []byte or any
    member its zero value; anything else fails with ErrNullIntoNonNullable
    unless Options.DefaultIfNull is set.

# Statements

BuildInsert, BuildUpdate, BuildDelete, BuildSelectByKey and BuildSelectAll
produce bracket quoted T-SQL with "@Name" placeholders and a Parameters
collection of templates. Templates are re-bound for every execution; a
BoundParam is single use.

# Caching

The member selection for a (type, column set) pair is cached in the DB's
Cache. Keys ignore column order and case. Concurrent misses on the same key
race benignly: the first stored selection wins.

# Error handling

  - Get and Retrieve return sql.ErrNoRows when no row matches.
  - Mapping errors are package sentinels (ErrNoPrimaryKey, ErrConversion, ...)
    matched with errors.Is; driver errors are returned unchanged.
*/
package xrecord
