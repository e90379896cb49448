package employee

import "time"

// Location は社員の所属拠点です。
type Location string

const (
	LocationEindhoven  Location = "Eindhoven"
	LocationMaastricht Location = "Maastricht"
)

// Hierarchy は社員の職位です。
type Hierarchy string

const (
	HierarchyBoss                Hierarchy = "Boss"
	HierarchyManagingDirector    Hierarchy = "Managing Director"
	HierarchyManagingConsultant  Hierarchy = "Managing Consultant"
	HierarchyPrincipalConsultant Hierarchy = "Principal Consultant"
	HierarchySeniorConsultant    Hierarchy = "Senior Consultant"
	HierarchyConsultant          Hierarchy = "Consultant"
	HierarchyWerkstudent         Hierarchy = "Werkstudent"
)

// Employee はコンサルタント社員のエンティティです。
// CurrentClient と ProjectStartDate は表示用のキャッシュであり、アサインの正は台帳側にあります。
type Employee struct {
	ID               string
	Name             string
	Location         Location
	Hierarchy        Hierarchy
	Skills           []string
	CurrentClient    *string
	CV               *string
	ProfilePicture   *string
	ProjectStartDate *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
