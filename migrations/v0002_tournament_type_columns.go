package migrations

func init() {
	register(&Migration{
		Revision:     "0002",
		DownRevision: "0001",
		Message:      "add tournament type columns (online vs in-person)",
		CreateDate:   "2026-02-05",
		Up: []Operation{
			BatchAlter{
				Table: "tournaments",
				AddColumns: []Column{
					{Name: "is_online", Type: "BOOLEAN", Nullable: true, ServerDefault: "1"},
					{Name: "venue", Type: "VARCHAR(200)", Nullable: true},
					{Name: "result_confirmation_minutes", Type: "INTEGER", Nullable: true, ServerDefault: "10"},
				},
			},
		},
		Down: []Operation{
			BatchAlter{
				Table:       "tournaments",
				DropColumns: []string{"result_confirmation_minutes", "venue", "is_online"},
			},
		},
	})
}
