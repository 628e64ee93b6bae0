// Package catalog загружает справочники предметов и умений из YAML.
// После загрузки таблицы только читаются и разделяются всеми сущностями.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/Mun1z/Imgeneus/internal/domain"
	"github.com/Mun1z/Imgeneus/pkg/logger"
)

const (
	ItemsFile  = "items.yaml"
	SkillsFile = "skills.yaml"
)

type itemKey struct {
	Type, TypeID uint8
}

type skillKey struct {
	ID    uint16
	Level uint8
}

// Catalog реализует domain.Catalog.
type Catalog struct {
	items  map[itemKey]*domain.ItemTemplate
	skills map[skillKey]*domain.Skill
}

var _ domain.Catalog = (*Catalog)(nil)

// Load читает items.yaml и skills.yaml из dir.
func Load(dir string) (*Catalog, error) {
	items, err := os.ReadFile(filepath.Join(dir, ItemsFile))
	if err != nil {
		return nil, fmt.Errorf("read items: %w", err)
	}
	skills, err := os.ReadFile(filepath.Join(dir, SkillsFile))
	if err != nil {
		return nil, fmt.Errorf("read skills: %w", err)
	}

	c, err := Parse(items, skills)
	if err != nil {
		return nil, err
	}

	logger.Component("catalog").WithFields(logrus.Fields{
		"dir":    dir,
		"items":  len(c.items),
		"skills": len(c.skills),
	}).Info("Catalog loaded")
	return c, nil
}

// Parse разбирает содержимое двух файлов.
func Parse(itemsYAML, skillsYAML []byte) (*Catalog, error) {
	c := &Catalog{
		items:  make(map[itemKey]*domain.ItemTemplate),
		skills: make(map[skillKey]*domain.Skill),
	}
	if err := c.parseItems(itemsYAML); err != nil {
		return nil, err
	}
	if err := c.parseSkills(skillsYAML); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) parseItems(data []byte) error {
	var doc struct {
		Items []yaml.Node `yaml:"items"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse items: %w", err)
	}

	for i := range doc.Items {
		// по умолчанию предмет не надевается
		tpl := &domain.ItemTemplate{Slot: domain.SlotNone}
		if err := doc.Items[i].Decode(tpl); err != nil {
			return fmt.Errorf("item #%d (line %d): %w", i, doc.Items[i].Line, err)
		}
		if tpl.MaxCount <= 0 {
			tpl.MaxCount = 1
		}

		key := itemKey{Type: tpl.Type, TypeID: tpl.TypeID}
		if _, dup := c.items[key]; dup {
			return fmt.Errorf("duplicate item %d/%d (%s)", tpl.Type, tpl.TypeID, tpl.Name)
		}
		c.items[key] = tpl
	}
	return nil
}

func (c *Catalog) parseSkills(data []byte) error {
	var doc struct {
		Skills []*domain.Skill `yaml:"skills"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse skills: %w", err)
	}

	log := logger.Component("catalog")
	for _, s := range doc.Skills {
		key := skillKey{ID: s.ID, Level: s.Level}
		if _, dup := c.skills[key]; dup {
			return fmt.Errorf("duplicate skill %d/%d (%s)", s.ID, s.Level, s.Name)
		}
		// Неподдерживаемые умения не отбрасываются: ошибка всплывёт при применении.
		if err := s.Validate(); err != nil {
			log.WithError(err).Warn("Skill cannot be applied by the engine")
		}
		c.skills[key] = s
	}
	return nil
}

func (c *Catalog) LookupItem(itemType, typeID uint8) (*domain.ItemTemplate, bool) {
	tpl, ok := c.items[itemKey{Type: itemType, TypeID: typeID}]
	return tpl, ok
}

func (c *Catalog) LookupSkill(id uint16, level uint8) (*domain.Skill, bool) {
	s, ok := c.skills[skillKey{ID: id, Level: level}]
	return s, ok
}

// Items - все шаблоны, отсортированные по (type, typeId).
func (c *Catalog) Items() []*domain.ItemTemplate {
	out := make([]*domain.ItemTemplate, 0, len(c.items))
	for _, tpl := range c.items {
		out = append(out, tpl)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].TypeID < out[j].TypeID
	})
	return out
}

func (c *Catalog) SkillCount() int { return len(c.skills) }
