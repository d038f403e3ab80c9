package api

import "context"

// Operator is the authenticated console user attached to the request context.
type Operator struct {
	Subject string
}

type ctxKey string

const ctxKeyOperator ctxKey = "operator"

func WithOperator(ctx context.Context, op *Operator) context.Context {
	return context.WithValue(ctx, ctxKeyOperator, op)
}

func OperatorFromContext(ctx context.Context) *Operator {
	v := ctx.Value(ctxKeyOperator)
	if v == nil {
		return nil
	}
	op, _ := v.(*Operator)
	return op
}
