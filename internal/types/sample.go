package types

// SampleSOP is the bundled onboarding procedure used for demos and as the
// default document in the input panel.
const SampleSOP = `Standard Operating Procedure: New Employee Onboarding

Version: 1.2

Objective: To ensure a smooth and effective onboarding process for all new hires, integrating them into the company culture and preparing them for their roles.

Process Owner: HR Department

---

**Phase 1: Pre-Arrival (5 days before start date)**

1.  **HR Initiates Onboarding in HRIS**
    *   The HR Coordinator receives the signed offer letter.
    *   They create a new employee profile in the HR Information System (HRIS).
    *   This action triggers automated notifications to IT and Facilities.

2.  **IT Provisioning**
    *   IT receives an automated ticket.
    *   A technician sets up a new laptop according to the employee's role template.
    *   Required software is installed (e.g., MS Office, Slack, specific departmental tools).
    *   Email and network accounts are created.

3.  **Facilities Preparation**
    *   Facilities receives a notification.
    *   A desk is assigned and cleaned.
    *   An access badge is printed.
    *   A welcome kit (company swag, notebook, pen) is placed on the desk.

---

**Phase 2: Day 1 - Orientation**

1.  **Welcome and HR Paperwork**
    *   The new hire arrives and is greeted by the HR Coordinator.
    *   Verification of I-9 documentation is completed.
    *   Review and signature of remaining employment documents (handbook acknowledgment, NDA).

2.  **IT Setup and Equipment Handover**
    *   The new hire meets with an IT technician.
    *   The employee receives their laptop and logs in for the first time.
    *   The technician provides a brief overview of key systems and security policies.

3.  **Team Introduction**
    *   The hiring manager introduces the new employee to the team.
    *   A team lunch is scheduled to facilitate informal introductions.

---

**Phase 3: First Week - Integration**

1.  **Role-Specific Training**
    *   The hiring manager or a designated 'buddy' begins training on specific job duties and workflows.
    *   The manager sets up initial 1-on-1 meetings to discuss goals for the first 30/60/90 days.

2.  **Mandatory Compliance Training**
    *   HR assigns mandatory online training modules (e.g., Cybersecurity Awareness, Code of Conduct).
    *   The employee must complete these within the first week. The HRIS tracks completion.
`
