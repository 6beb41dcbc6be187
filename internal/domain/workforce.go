package domain

import "slices"

// Employee references its department and the shifts it works.
// Shifts mirrors Shift.Employees.
type Employee struct {
	ID            string   `json:"id"`
	FirstName     string   `json:"firstName"`
	LastName      string   `json:"lastName"`
	StartWorkYear int      `json:"startWorkYear"`
	DepartmentID  *string  `json:"departmentId"`
	ShiftIDs      []string `json:"shiftIds"`
}

// HasShift reports membership of shiftID in e.ShiftIDs.
func (e *Employee) HasShift(shiftID string) bool {
	return slices.Contains(e.ShiftIDs, shiftID)
}

// Department optionally points at one employee as its manager.
// The employee side carries no back reference.
type Department struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	ManagerID *string `json:"managerId"`
}

// Shift is a same-day block of hours. EmployeeIDs mirrors Employee.ShiftIDs.
type Shift struct {
	ID           string   `json:"id"`
	Date         Date     `json:"date"`
	StartingHour int      `json:"startingHour"`
	EndingHour   int      `json:"endingHour"`
	EmployeeIDs  []string `json:"employeeIds"`
}

// HasEmployee reports membership of employeeID in s.EmployeeIDs.
func (s *Shift) HasEmployee(employeeID string) bool {
	return slices.Contains(s.EmployeeIDs, employeeID)
}
