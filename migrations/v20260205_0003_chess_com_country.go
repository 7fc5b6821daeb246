package migrations

func init() {
	register(&Migration{
		Revision:     "20260205_0003",
		DownRevision: "0002",
		Message:      "add chess_com_country column to players",
		CreateDate:   "2026-02-05",
		Up: []Operation{
			BatchAlter{
				Table:      "players",
				AddColumns: []Column{{Name: "chess_com_country", Type: "VARCHAR(5)", Nullable: true}},
			},
		},
		Down: []Operation{
			BatchAlter{Table: "players", DropColumns: []string{"chess_com_country"}},
		},
	})
}
