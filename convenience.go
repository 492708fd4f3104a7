package qdb

import "context"

// The package-level convenience functions forward to whichever Database
// was first opened with WithDefault(), letting simple programs skip
// threading a *Database through their call graph. Anything beyond a
// single default connection should call the Queryable methods directly.

func FetchAll(ctx context.Context, target any, opts ...QueryOption) ([]Row, error) {
	d, err := Default()
	if err != nil {
		return nil, err
	}
	return d.FetchAll(ctx, target, opts...)
}

func FetchOne(ctx context.Context, target any, opts ...QueryOption) (Row, error) {
	d, err := Default()
	if err != nil {
		return Row{}, err
	}
	return d.FetchOne(ctx, target, opts...)
}

func Insert(ctx context.Context, target any, values Values) (any, error) {
	d, err := Default()
	if err != nil {
		return nil, err
	}
	return d.Insert(ctx, target, values)
}

func Update(ctx context.Context, target any, values Values, where Where) (int64, error) {
	d, err := Default()
	if err != nil {
		return 0, err
	}
	return d.Update(ctx, target, values, where)
}

func Delete(ctx context.Context, target any, where Where) (int64, error) {
	d, err := Default()
	if err != nil {
		return 0, err
	}
	return d.Delete(ctx, target, where)
}

func Execute(ctx context.Context, sql string, params ...any) (Result, error) {
	d, err := Default()
	if err != nil {
		return Result{}, err
	}
	return d.Execute(ctx, sql, params...)
}
