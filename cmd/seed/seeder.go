package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"factorymanager.io/manager/internal/domain"
	apperrors "factorymanager.io/manager/internal/pkg/errors"
	"factorymanager.io/manager/internal/pkg/logger"
	"factorymanager.io/manager/internal/repository"
	"factorymanager.io/manager/internal/service"
)

// SeedFile is the YAML seed document. Departments and employees carry a
// local key so the file can reference them before they have ids.
type SeedFile struct {
	Principals  []SeedPrincipal  `yaml:"principals"`
	Departments []SeedDepartment `yaml:"departments"`
	Employees   []SeedEmployee   `yaml:"employees"`
	Shifts      []SeedShift      `yaml:"shifts"`
}

type SeedPrincipal struct {
	FullName         string `yaml:"fullName"`
	Username         string `yaml:"username"`
	Password         string `yaml:"password"`
	MaxActionsPerDay *int   `yaml:"maxActionsPerDay"`
}

type SeedDepartment struct {
	Key     string `yaml:"key"`
	Name    string `yaml:"name"`
	Manager string `yaml:"manager"` // employee key
}

type SeedEmployee struct {
	Key           string `yaml:"key"`
	FirstName     string `yaml:"firstName"`
	LastName      string `yaml:"lastName"`
	StartWorkYear int    `yaml:"startWorkYear"`
	Department    string `yaml:"department"` // department key
}

type SeedShift struct {
	Date         string   `yaml:"date"`
	StartingHour int      `yaml:"startingHour"`
	EndingHour   int      `yaml:"endingHour"`
	Employees    []string `yaml:"employees"` // employee keys
}

type summary struct {
	Principals  int
	Departments int
	Employees   int
	Shifts      int
	Assignments int
}

type seeder struct {
	principals  *service.PrincipalService
	departments *service.DepartmentService
	employees   *service.EmployeeService
	shifts      *service.ShiftService
}

// apply creates whatever in file does not exist yet. Existing records are
// matched by username, department name, employee name and shift schedule.
func (s *seeder) apply(ctx context.Context, file *SeedFile) (summary, error) {
	var sum summary

	for _, p := range file.Principals {
		_, err := s.principals.Register(ctx, domain.RegisterInput{
			FullName:         p.FullName,
			Username:         p.Username,
			Password:         p.Password,
			MaxActionsPerDay: p.MaxActionsPerDay,
		})
		switch {
		case apperrors.HasCode(err, apperrors.CodeUsernameTaken):
			logger.Info("Principal already exists, skipping", zap.String("username", p.Username))
		case err != nil:
			return sum, fmt.Errorf("register %s: %w", p.Username, err)
		default:
			sum.Principals++
		}
	}

	deptIDs := make(map[string]string, len(file.Departments))
	for _, d := range file.Departments {
		id, created, err := s.ensureDepartment(ctx, d.Name)
		if err != nil {
			return sum, fmt.Errorf("department %s: %w", d.Key, err)
		}
		deptIDs[d.Key] = id
		if created {
			sum.Departments++
		}
	}

	empIDs := make(map[string]string, len(file.Employees))
	for _, e := range file.Employees {
		var deptID *string
		if e.Department != "" {
			id, ok := deptIDs[e.Department]
			if !ok {
				return sum, fmt.Errorf("employee %s: unknown department key %q", e.Key, e.Department)
			}
			deptID = &id
		}
		id, created, err := s.ensureEmployee(ctx, e, deptID)
		if err != nil {
			return sum, fmt.Errorf("employee %s: %w", e.Key, err)
		}
		empIDs[e.Key] = id
		if created {
			sum.Employees++
		}
	}

	for _, d := range file.Departments {
		if d.Manager == "" {
			continue
		}
		managerID, ok := empIDs[d.Manager]
		if !ok {
			return sum, fmt.Errorf("department %s: unknown manager key %q", d.Key, d.Manager)
		}
		if _, err := s.departments.Update(ctx, deptIDs[d.Key], domain.DepartmentInput{Name: d.Name, ManagerID: &managerID}); err != nil {
			return sum, fmt.Errorf("department %s manager: %w", d.Key, err)
		}
	}

	for _, sh := range file.Shifts {
		id, created, err := s.ensureShift(ctx, sh)
		if err != nil {
			return sum, fmt.Errorf("shift %s %d-%d: %w", sh.Date, sh.StartingHour, sh.EndingHour, err)
		}
		if created {
			sum.Shifts++
		}
		for _, key := range sh.Employees {
			empID, ok := empIDs[key]
			if !ok {
				return sum, fmt.Errorf("shift %s: unknown employee key %q", sh.Date, key)
			}
			if _, err := s.employees.AssignShift(ctx, empID, id); err != nil {
				return sum, fmt.Errorf("assign %s to shift %s: %w", key, id, err)
			}
			sum.Assignments++
		}
	}
	return sum, nil
}

func (s *seeder) ensureDepartment(ctx context.Context, name string) (string, bool, error) {
	existing, err := s.departments.List(ctx, repository.DepartmentFilter{Name: name})
	if err != nil {
		return "", false, err
	}
	if len(existing) > 0 {
		return existing[0].ID, false, nil
	}
	d, err := s.departments.Create(ctx, domain.DepartmentInput{Name: name})
	if err != nil {
		return "", false, err
	}
	return d.ID, true, nil
}

func (s *seeder) ensureEmployee(ctx context.Context, e SeedEmployee, deptID *string) (string, bool, error) {
	existing, err := s.employees.List(ctx, repository.EmployeeFilter{})
	if err != nil {
		return "", false, err
	}
	for _, cur := range existing {
		if cur.FirstName == e.FirstName && cur.LastName == e.LastName {
			return cur.ID, false, nil
		}
	}
	created, err := s.employees.Create(ctx, domain.EmployeeInput{
		FirstName:     e.FirstName,
		LastName:      e.LastName,
		StartWorkYear: e.StartWorkYear,
		DepartmentID:  deptID,
	})
	if err != nil {
		return "", false, err
	}
	return created.ID, true, nil
}

func (s *seeder) ensureShift(ctx context.Context, sh SeedShift) (string, bool, error) {
	date, err := domain.ParseDate(sh.Date)
	if err != nil {
		return "", false, apperrors.ErrValidation("date", "must be a YYYY-MM-DD date")
	}
	existing, err := s.shifts.List(ctx, repository.ShiftFilter{Date: &date})
	if err != nil {
		return "", false, err
	}
	for _, cur := range existing {
		if cur.StartingHour == sh.StartingHour && cur.EndingHour == sh.EndingHour {
			return cur.ID, false, nil
		}
	}
	start, end := sh.StartingHour, sh.EndingHour
	created, err := s.shifts.Create(ctx, domain.ShiftInput{Date: sh.Date, StartingHour: &start, EndingHour: &end})
	if err != nil {
		return "", false, err
	}
	return created.ID, true, nil
}
