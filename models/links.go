package models

import "gorm.io/gorm"

// SetContentLinks replaces the persona and platform links of a content row.
// A nil slice leaves that link set unchanged; an empty one clears it. Run it in
// a transaction together with the content write.
func SetContentLinks(tx *gorm.DB, contentID uint, personaIDs, platformIDs []uint) error {
	if personaIDs != nil {
		if err := tx.Where("content_id = ?", contentID).Delete(&ContentPersona{}).Error; err != nil {
			return err
		}
		if len(personaIDs) > 0 {
			rows := make([]ContentPersona, 0, len(personaIDs))
			for _, id := range uniqueIDs(personaIDs) {
				rows = append(rows, ContentPersona{ContentID: contentID, PersonaID: id})
			}
			if err := tx.Create(&rows).Error; err != nil {
				return ClassifyDBError(err)
			}
		}
	}
	if platformIDs != nil {
		if err := tx.Where("content_id = ?", contentID).Delete(&ContentPlatform{}).Error; err != nil {
			return err
		}
		if len(platformIDs) > 0 {
			rows := make([]ContentPlatform, 0, len(platformIDs))
			for _, id := range uniqueIDs(platformIDs) {
				rows = append(rows, ContentPlatform{ContentID: contentID, PlatformID: id})
			}
			if err := tx.Create(&rows).Error; err != nil {
				return ClassifyDBError(err)
			}
		}
	}
	return nil
}

// SetPersonaLinks replaces the platform and interest links of a persona, with
// the same nil/empty convention as SetContentLinks.
func SetPersonaLinks(tx *gorm.DB, personaID uint, platformIDs, interestIDs []uint) error {
	if platformIDs != nil {
		if err := tx.Where("persona_id = ?", personaID).Delete(&PersonaPlatform{}).Error; err != nil {
			return err
		}
		if len(platformIDs) > 0 {
			rows := make([]PersonaPlatform, 0, len(platformIDs))
			for _, id := range uniqueIDs(platformIDs) {
				rows = append(rows, PersonaPlatform{PersonaID: personaID, PlatformID: id})
			}
			if err := tx.Create(&rows).Error; err != nil {
				return ClassifyDBError(err)
			}
		}
	}
	if interestIDs != nil {
		if err := tx.Where("persona_id = ?", personaID).Delete(&PersonaInterest{}).Error; err != nil {
			return err
		}
		if len(interestIDs) > 0 {
			rows := make([]PersonaInterest, 0, len(interestIDs))
			for _, id := range uniqueIDs(interestIDs) {
				rows = append(rows, PersonaInterest{PersonaID: personaID, InterestID: id})
			}
			if err := tx.Create(&rows).Error; err != nil {
				return ClassifyDBError(err)
			}
		}
	}
	return nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
