package database

import (
	"context"
	"errors"
	"fmt"

	"protein-updater/core/reconcile"

	"gorm.io/gorm"
)

// Store persists local records in the relational schema described by Models.
type Store struct {
	db *gorm.DB
}

// NewStore returns a record store backed by db.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Get returns the record with the given id.
func (s *Store) Get(ctx context.Context, id reconcile.RecordID) (*reconcile.LocalRecord, error) {
	var row ProteinRow
	if err := s.db.WithContext(ctx).First(&row, int64(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("record %d: %w", id, reconcile.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load record %d: %w", id, err)
	}
	records, err := s.load(ctx, []ProteinRow{row})
	if err != nil {
		return nil, err
	}
	return records[0], nil
}

// FindByXref returns the records carrying the cross reference, ordered by id.
func (s *Store) FindByXref(ctx context.Context, database, qualifier, value string) ([]*reconcile.LocalRecord, error) {
	owners := s.db.Model(&XrefRow{}).Select("protein_id").
		Where("xref_database = ? AND qualifier = ? AND value = ?", database, qualifier, value)

	var rows []ProteinRow
	if err := s.db.WithContext(ctx).Where("id IN (?)", owners).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find records by %s/%s %s: %w", database, qualifier, value, err)
	}
	return s.load(ctx, rows)
}

// FindByParent returns the transcripts pointing at target, ordered by id.
func (s *Store) FindByParent(ctx context.Context, target reconcile.RecordID) ([]*reconcile.LocalRecord, error) {
	children := s.db.Model(&ParentRow{}).Select("protein_id").Where("target_id = ?", int64(target))

	var rows []ProteinRow
	if err := s.db.WithContext(ctx).Where("id IN (?)", children).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find children of %d: %w", target, err)
	}
	return s.load(ctx, rows)
}

// Save writes the record and the links it lists. Cross references, annotations
// and parent references are replaced wholesale.
func (s *Store) Save(ctx context.Context, rec *reconcile.LocalRecord) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := ProteinRow{
			ID:         int64(rec.ID),
			ShortLabel: rec.ShortLabel,
			Kind:       string(rec.Kind),
			Sequence:   rec.Sequence,
			OrganismID: rec.OrganismID,
		}
		if row.ID == 0 {
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("failed to insert record %s: %w", rec.Label(), err)
			}
		} else if err := tx.Save(&row).Error; err != nil {
			return fmt.Errorf("failed to update record %d: %w", row.ID, err)
		}
		rec.ID = reconcile.RecordID(row.ID)

		for _, model := range []any{&XrefRow{}, &AnnotationRow{}, &ParentRow{}} {
			if err := tx.Where("protein_id = ?", row.ID).Delete(model).Error; err != nil {
				return fmt.Errorf("failed to clear children of %d: %w", row.ID, err)
			}
		}

		if len(rec.Xrefs) > 0 {
			xrefs := make([]XrefRow, len(rec.Xrefs))
			for i, x := range rec.Xrefs {
				xrefs[i] = XrefRow{ProteinID: row.ID, Database: x.Database, Qualifier: x.Qualifier, Value: x.Value}
			}
			if err := tx.Create(&xrefs).Error; err != nil {
				return fmt.Errorf("failed to write xrefs of %d: %w", row.ID, err)
			}
		}
		if len(rec.Annotations) > 0 {
			annotations := make([]AnnotationRow, len(rec.Annotations))
			for i, a := range rec.Annotations {
				annotations[i] = AnnotationRow{ProteinID: row.ID, Topic: a.Topic, Text: a.Text}
			}
			if err := tx.Create(&annotations).Error; err != nil {
				return fmt.Errorf("failed to write annotations of %d: %w", row.ID, err)
			}
		}
		if len(rec.Parents) > 0 {
			parents := make([]ParentRow, len(rec.Parents))
			for i, p := range rec.Parents {
				parents[i] = ParentRow{ProteinID: row.ID, Kind: string(p.Kind), TargetID: int64(p.Target)}
			}
			if err := tx.Create(&parents).Error; err != nil {
				return fmt.Errorf("failed to write parents of %d: %w", row.ID, err)
			}
		}

		for _, l := range rec.Links {
			if err := saveLink(tx, rec.ID, l); err != nil {
				return err
			}
		}
		return nil
	})
}

func saveLink(tx *gorm.DB, owner reconcile.RecordID, l *reconcile.ActiveLink) error {
	row := LinkRow{
		ID:               int64(l.ID),
		ProteinID:        int64(owner),
		InteractionID:    l.InteractionID,
		ExperimentalRole: l.ExperimentalRole,
		BiologicalRole:   l.BiologicalRole,
	}
	if row.ID == 0 {
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to insert link %s: %w", l.InteractionID, err)
		}
	} else if err := tx.Save(&row).Error; err != nil {
		return fmt.Errorf("failed to update link %d: %w", row.ID, err)
	}
	l.ID = reconcile.LinkID(row.ID)
	l.Owner = owner

	if err := clearFeatures(tx, row.ID); err != nil {
		return err
	}
	// Features folded in from another link still hold their rows there
	var carried []int64
	for _, f := range l.Features {
		if f.ID != 0 {
			carried = append(carried, int64(f.ID))
		}
	}
	if err := dropFeatures(tx, carried); err != nil {
		return fmt.Errorf("failed to release features of link %d: %w", row.ID, err)
	}

	for _, f := range l.Features {
		fr := FeatureRow{ID: int64(f.ID), LinkID: row.ID, ShortLabel: f.ShortLabel}
		if err := tx.Create(&fr).Error; err != nil {
			return fmt.Errorf("failed to write feature of link %d: %w", row.ID, err)
		}
		f.ID = reconcile.FeatureID(fr.ID)

		for _, a := range f.Annotations {
			ar := FeatureAnnotationRow{FeatureID: fr.ID, Topic: a.Topic, Text: a.Text}
			if err := tx.Create(&ar).Error; err != nil {
				return fmt.Errorf("failed to write annotation of feature %d: %w", fr.ID, err)
			}
		}
		for _, r := range f.Ranges {
			rr := RangeRow{
				ID:         r.ID,
				FeatureID:  fr.ID,
				FromStatus: string(r.FromStatus),
				FromStart:  r.FromStart,
				FromEnd:    r.FromEnd,
				ToStatus:   string(r.ToStatus),
				ToStart:    r.ToStart,
				ToEnd:      r.ToEnd,
				Sequence:   r.Sequence,
			}
			if err := tx.Create(&rr).Error; err != nil {
				return fmt.Errorf("failed to write range of feature %d: %w", fr.ID, err)
			}
			r.ID = rr.ID
		}
	}
	return nil
}

// clearFeatures removes the features of a link along with their ranges and annotations.
func clearFeatures(tx *gorm.DB, link int64) error {
	var featureIDs []int64
	if err := tx.Model(&FeatureRow{}).Where("link_id = ?", link).Pluck("id", &featureIDs).Error; err != nil {
		return fmt.Errorf("failed to list features of link %d: %w", link, err)
	}
	if err := dropFeatures(tx, featureIDs); err != nil {
		return fmt.Errorf("failed to clear features of link %d: %w", link, err)
	}
	return nil
}

// dropFeatures deletes feature rows by id along with their ranges and annotations.
func dropFeatures(tx *gorm.DB, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("feature_id IN ?", ids).Delete(&RangeRow{}).Error; err != nil {
		return err
	}
	if err := tx.Where("feature_id IN ?", ids).Delete(&FeatureAnnotationRow{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", ids).Delete(&FeatureRow{}).Error
}

// Delete removes a link-less record.
func (s *Store) Delete(ctx context.Context, id reconcile.RecordID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var links int64
		if err := tx.Model(&LinkRow{}).Where("protein_id = ?", int64(id)).Count(&links).Error; err != nil {
			return fmt.Errorf("failed to count links of %d: %w", id, err)
		}
		if links > 0 {
			return fmt.Errorf("record %d owns %d links: %w", id, links, reconcile.ErrRecordHasLinks)
		}

		res := tx.Delete(&ProteinRow{}, int64(id))
		if res.Error != nil {
			return fmt.Errorf("failed to delete record %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("record %d: %w", id, reconcile.ErrNotFound)
		}

		for _, model := range []any{&XrefRow{}, &AnnotationRow{}, &ParentRow{}} {
			if err := tx.Where("protein_id = ?", int64(id)).Delete(model).Error; err != nil {
				return fmt.Errorf("failed to clear children of %d: %w", id, err)
			}
		}
		return nil
	})
}

// DeleteLink removes a link and its features.
func (s *Store) DeleteLink(ctx context.Context, id reconcile.LinkID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := clearFeatures(tx, int64(id)); err != nil {
			return err
		}
		res := tx.Delete(&LinkRow{}, int64(id))
		if res.Error != nil {
			return fmt.Errorf("failed to delete link %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("link %d: %w", id, reconcile.ErrNotFound)
		}
		return nil
	})
}

// CountLinks returns the number of links owned by the record.
func (s *Store) CountLinks(ctx context.Context, id reconcile.RecordID) (int, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&LinkRow{}).Where("protein_id = ?", int64(id)).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count links of %d: %w", id, err)
	}
	return int(n), nil
}

// Accessions returns the distinct canonical identities of admitted master proteins.
func (s *Store) Accessions(ctx context.Context) ([]string, error) {
	excluded := s.db.Table("protein_annotations AS a").Select("1").
		Where("a.protein_id = p.id AND a.topic = ?", reconcile.TopicNoUniprotUpdate)

	var accessions []string
	err := s.db.WithContext(ctx).Table("protein_xrefs AS x").
		Joins("JOIN proteins p ON p.id = x.protein_id").
		Where("x.xref_database = ? AND x.qualifier = ?", reconcile.DatabaseUniProt, reconcile.QualifierIdentity).
		Where("p.kind = ?", string(reconcile.KindProtein)).
		Where("NOT EXISTS (?)", excluded).
		Distinct("x.value").
		Order("x.value").
		Pluck("x.value", &accessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list accessions: %w", err)
	}
	return accessions, nil
}

// Transaction runs fn inside a database transaction.
func (s *Store) Transaction(ctx context.Context, fn func(reconcile.RecordStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// load assembles full records from protein rows, keeping the row order.
func (s *Store) load(ctx context.Context, rows []ProteinRow) ([]*reconcile.LocalRecord, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	db := s.db.WithContext(ctx)

	ids := make([]int64, len(rows))
	records := make([]*reconcile.LocalRecord, len(rows))
	byID := make(map[int64]*reconcile.LocalRecord, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
		records[i] = &reconcile.LocalRecord{
			ID:         reconcile.RecordID(row.ID),
			ShortLabel: row.ShortLabel,
			Kind:       reconcile.RecordKind(row.Kind),
			Sequence:   row.Sequence,
			OrganismID: row.OrganismID,
		}
		byID[row.ID] = records[i]
	}

	var xrefs []XrefRow
	if err := db.Where("protein_id IN ?", ids).Order("id").Find(&xrefs).Error; err != nil {
		return nil, fmt.Errorf("failed to load xrefs: %w", err)
	}
	for _, x := range xrefs {
		r := byID[x.ProteinID]
		r.Xrefs = append(r.Xrefs, reconcile.CrossRef{Database: x.Database, Qualifier: x.Qualifier, Value: x.Value})
	}

	var annotations []AnnotationRow
	if err := db.Where("protein_id IN ?", ids).Order("id").Find(&annotations).Error; err != nil {
		return nil, fmt.Errorf("failed to load annotations: %w", err)
	}
	for _, a := range annotations {
		r := byID[a.ProteinID]
		r.Annotations = append(r.Annotations, reconcile.Annotation{Topic: a.Topic, Text: a.Text})
	}

	var parents []ParentRow
	if err := db.Where("protein_id IN ?", ids).Order("id").Find(&parents).Error; err != nil {
		return nil, fmt.Errorf("failed to load parents: %w", err)
	}
	for _, p := range parents {
		r := byID[p.ProteinID]
		r.Parents = append(r.Parents, reconcile.ParentRef{Kind: reconcile.ParentKind(p.Kind), Target: reconcile.RecordID(p.TargetID)})
	}

	var links []LinkRow
	if err := db.Where("protein_id IN ?", ids).Order("id").Find(&links).Error; err != nil {
		return nil, fmt.Errorf("failed to load links: %w", err)
	}
	if len(links) == 0 {
		return records, nil
	}

	linkIDs := make([]int64, len(links))
	linkByID := make(map[int64]*reconcile.ActiveLink, len(links))
	for i, l := range links {
		linkIDs[i] = l.ID
		link := &reconcile.ActiveLink{
			ID:               reconcile.LinkID(l.ID),
			InteractionID:    l.InteractionID,
			Owner:            reconcile.RecordID(l.ProteinID),
			ExperimentalRole: l.ExperimentalRole,
			BiologicalRole:   l.BiologicalRole,
		}
		linkByID[l.ID] = link
		r := byID[l.ProteinID]
		r.Links = append(r.Links, link)
	}

	var features []FeatureRow
	if err := db.Where("link_id IN ?", linkIDs).Order("id").Find(&features).Error; err != nil {
		return nil, fmt.Errorf("failed to load features: %w", err)
	}
	if len(features) == 0 {
		return records, nil
	}

	featureIDs := make([]int64, len(features))
	featureByID := make(map[int64]*reconcile.Feature, len(features))
	for i, f := range features {
		featureIDs[i] = f.ID
		feature := &reconcile.Feature{ID: reconcile.FeatureID(f.ID), ShortLabel: f.ShortLabel}
		featureByID[f.ID] = feature
		l := linkByID[f.LinkID]
		l.Features = append(l.Features, feature)
	}

	var featureAnnotations []FeatureAnnotationRow
	if err := db.Where("feature_id IN ?", featureIDs).Order("id").Find(&featureAnnotations).Error; err != nil {
		return nil, fmt.Errorf("failed to load feature annotations: %w", err)
	}
	for _, a := range featureAnnotations {
		f := featureByID[a.FeatureID]
		f.Annotations = append(f.Annotations, reconcile.Annotation{Topic: a.Topic, Text: a.Text})
	}

	var ranges []RangeRow
	if err := db.Where("feature_id IN ?", featureIDs).Order("id").Find(&ranges).Error; err != nil {
		return nil, fmt.Errorf("failed to load ranges: %w", err)
	}
	for _, r := range ranges {
		f := featureByID[r.FeatureID]
		f.Ranges = append(f.Ranges, &reconcile.Range{
			ID:         r.ID,
			FromStatus: reconcile.RangeStatus(r.FromStatus),
			FromStart:  r.FromStart,
			FromEnd:    r.FromEnd,
			ToStatus:   reconcile.RangeStatus(r.ToStatus),
			ToStart:    r.ToStart,
			ToEnd:      r.ToEnd,
			Sequence:   r.Sequence,
		})
	}

	return records, nil
}
