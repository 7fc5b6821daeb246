package migrations

// In-person games are settled by one player claiming a result and the
// opponent confirming or disputing it.
func init() {
	register(&Migration{
		Revision:     "0001",
		DownRevision: "0000",
		Message:      "add in-person result confirmation columns to pairings",
		CreateDate:   "2026-02-05",
		Up: []Operation{
			BatchAlter{
				Table: "pairings",
				AddColumns: []Column{
					{Name: "claimed_result", Type: "TEXT", Nullable: true},
					{Name: "claimed_by", Type: "VARCHAR(36)", Nullable: true},
					{Name: "claimed_at", Type: "DATETIME", Nullable: true},
					{Name: "confirmation_deadline", Type: "DATETIME", Nullable: true},
					{Name: "confirmed_by", Type: "VARCHAR(36)", Nullable: true},
					{Name: "confirmed_at", Type: "DATETIME", Nullable: true},
					{Name: "is_disputed", Type: "BOOLEAN", Nullable: true, ServerDefault: "0"},
					{Name: "dispute_reason", Type: "TEXT", Nullable: true},
				},
			},
			CreateIndex{
				Name:    "ix_pairings_claimed",
				Table:   "pairings",
				Columns: []string{"tournament_id", "claimed_result", "is_disputed"},
			},
		},
		Down: []Operation{
			DropIndex{Name: "ix_pairings_claimed", Table: "pairings"},
			BatchAlter{
				Table: "pairings",
				DropColumns: []string{
					"dispute_reason",
					"is_disputed",
					"confirmed_at",
					"confirmed_by",
					"confirmation_deadline",
					"claimed_at",
					"claimed_by",
					"claimed_result",
				},
			},
		},
	})
}
