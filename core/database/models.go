package database

// ProteinRow is a master protein or transcript.
type ProteinRow struct {
	ID         int64  `gorm:"column:id;primaryKey;autoIncrement"`
	ShortLabel string `gorm:"column:short_label;size:255"`
	Kind       string `gorm:"column:kind;size:20;index"`
	Sequence   string `gorm:"column:sequence;type:text"`
	OrganismID string `gorm:"column:organism_id;size:20"`
}

func (ProteinRow) TableName() string { return "proteins" }

// XrefRow is a cross reference of a protein.
type XrefRow struct {
	ID        int64  `gorm:"column:id;primaryKey;autoIncrement"`
	ProteinID int64  `gorm:"column:protein_id;index"`
	Database  string `gorm:"column:xref_database;size:50;index:idx_xref_lookup"`
	Qualifier string `gorm:"column:qualifier;size:50;index:idx_xref_lookup"`
	Value     string `gorm:"column:value;size:100;index:idx_xref_lookup"`
}

func (XrefRow) TableName() string { return "protein_xrefs" }

// AnnotationRow is a record annotation.
type AnnotationRow struct {
	ID        int64  `gorm:"column:id;primaryKey;autoIncrement"`
	ProteinID int64  `gorm:"column:protein_id;index"`
	Topic     string `gorm:"column:topic;size:50"`
	Text      string `gorm:"column:text;type:text"`
}

func (AnnotationRow) TableName() string { return "protein_annotations" }

// ParentRow points a transcript at its master.
type ParentRow struct {
	ID        int64  `gorm:"column:id;primaryKey;autoIncrement"`
	ProteinID int64  `gorm:"column:protein_id;index"`
	Kind      string `gorm:"column:kind;size:30"`
	TargetID  int64  `gorm:"column:target_id;index"`
}

func (ParentRow) TableName() string { return "protein_parents" }

// LinkRow is the participation of a protein in an interaction.
type LinkRow struct {
	ID               int64  `gorm:"column:id;primaryKey;autoIncrement"`
	ProteinID        int64  `gorm:"column:protein_id;index"`
	InteractionID    string `gorm:"column:interaction_id;size:50"`
	ExperimentalRole string `gorm:"column:experimental_role;size:50"`
	BiologicalRole   string `gorm:"column:biological_role;size:50"`
}

func (LinkRow) TableName() string { return "active_links" }

// FeatureRow belongs to a link.
type FeatureRow struct {
	ID         int64  `gorm:"column:id;primaryKey;autoIncrement"`
	LinkID     int64  `gorm:"column:link_id;index"`
	ShortLabel string `gorm:"column:short_label;size:255"`
}

func (FeatureRow) TableName() string { return "features" }

// FeatureAnnotationRow is an annotation of a feature.
type FeatureAnnotationRow struct {
	ID        int64  `gorm:"column:id;primaryKey;autoIncrement"`
	FeatureID int64  `gorm:"column:feature_id;index"`
	Topic     string `gorm:"column:topic;size:50"`
	Text      string `gorm:"column:text;type:text"`
}

func (FeatureAnnotationRow) TableName() string { return "feature_annotations" }

// RangeRow is one range of a feature.
type RangeRow struct {
	ID         int64  `gorm:"column:id;primaryKey;autoIncrement"`
	FeatureID  int64  `gorm:"column:feature_id;index"`
	FromStatus string `gorm:"column:from_status;size:20"`
	FromStart  int    `gorm:"column:from_start"`
	FromEnd    int    `gorm:"column:from_end"`
	ToStatus   string `gorm:"column:to_status;size:20"`
	ToStart    int    `gorm:"column:to_start"`
	ToEnd      int    `gorm:"column:to_end"`
	Sequence   string `gorm:"column:sequence;type:text"`
}

func (RangeRow) TableName() string { return "feature_ranges" }

// Models lists every table of the record schema in creation order.
func Models() []any {
	return []any{
		&ProteinRow{}, &XrefRow{}, &AnnotationRow{}, &ParentRow{},
		&LinkRow{}, &FeatureRow{}, &FeatureAnnotationRow{}, &RangeRow{},
	}
}
