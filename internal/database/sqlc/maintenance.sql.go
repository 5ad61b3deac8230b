package sqldb

import "context"

const deleteAllNodes = `DELETE FROM nodes`

func (q *Queries) DeleteAllNodes(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllNodes)
	return err
}
